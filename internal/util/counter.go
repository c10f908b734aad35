package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is the assumed L1 line width.
const CacheLineSize = 64

// PaddedAtomicUint64 occupies a full cache line so that statistics counters
// updated from different segments never false-share.
type PaddedAtomicUint64 struct {
	atomic.Uint64
	_ [CacheLineSize - unsafe.Sizeof(atomic.Uint64{})]byte
}

// PaddedAtomicInt64 is the signed variant, used for accumulated durations.
type PaddedAtomicInt64 struct {
	atomic.Int64
	_ [CacheLineSize - unsafe.Sizeof(atomic.Int64{})]byte
}
