package util

import (
	"math/bits"
	"runtime"
)

// ReasonableShardCount picks a practical default segment count based on CPU
// parallelism: nextPow2(2*GOMAXPROCS), clamped to [1..256].
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n > 256 {
		n = 256
	}
	return n
}

// ShardIndex maps a 64-bit hash to a segment index in [0, shards).
// Power-of-two counts take the mask path; any other count uses modulo.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}

// SplitCapacity divides total across n segments so that the per-segment
// capacities sum to exactly total and none exceeds ceil(total/n).
// The first total%n segments receive one extra slot.
func SplitCapacity(total, n int) []int {
	if n < 1 {
		return nil
	}
	caps := make([]int, n)
	if total <= 0 {
		return caps
	}
	base, extra := total/n, total%n
	for i := range caps {
		caps[i] = base
		if i < extra {
			caps[i]++
		}
	}
	return caps
}

// IsPowerOfTwo reports whether x is a non-zero power of two.
func IsPowerOfTwo(x uint64) bool { return x != 0 && x&(x-1) == 0 }

// NextPow2 rounds x up to a power of two: 0 and 1 give 1, anything past
// 1<<63 saturates at 1<<63.
func NextPow2(x uint64) uint64 {
	switch {
	case x <= 1:
		return 1
	case x > 1<<63:
		return 1 << 63
	}
	return 1 << bits.Len64(x-1)
}
