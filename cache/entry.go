package cache

import "math"

// entry is one cached record and an intrusive list element owned by a segment.
// Timestamps are UnixNano; writeTime <= accessTime always holds.
type entry[K comparable, V any] struct {
	key K
	val V

	// head is MRU, tail is LRU.
	prev *entry[K, V]
	next *entry[K, V]

	writeTime   int64
	accessTime  int64
	accessCount uint32
}

func newEntry[K comparable, V any](k K, v V, now int64) *entry[K, V] {
	return &entry[K, V]{key: k, val: v, writeTime: now, accessTime: now, accessCount: 1}
}

// touch records a hit at now.
func (e *entry[K, V]) touch(now int64) {
	if now > e.accessTime {
		e.accessTime = now
	}
	if e.accessCount < math.MaxUint32 {
		e.accessCount++
	}
}

// reset rewrites the entry as if freshly inserted.
func (e *entry[K, V]) reset(v V, now int64) {
	e.val = v
	e.writeTime = now
	e.accessTime = now
	e.accessCount = 1
}

func (e *entry[K, V]) Key() K            { return e.key }
func (e *entry[K, V]) Value() *V         { return &e.val }
func (e *entry[K, V]) Frequency() uint32 { return e.accessCount }
