// Package lfru implements a frequency-aware LRU eviction policy.
//
// Entries are kept in access order. When a segment is full, the victim is
// chosen among the least-recently-used third of the segment: the entry with
// the lowest access counter wins, ties going to the oldest access. A burst of
// one-off insertions therefore evicts other one-off entries first and leaves
// frequently read entries resident.
package lfru

import "github.com/IvanBrykalov/prefcache/policy"

// DefaultWindowDivisor selects the LRU third of the segment.
const DefaultWindowDivisor = 3

type lfru[K comparable, V any] struct {
	h       policy.Hooks[K, V]
	divisor int
}

type lfruPolicy[K comparable, V any] struct {
	divisor int
}

// New returns a Policy factory using the LRU third as the candidate window.
func New[K comparable, V any]() policy.Policy[K, V] {
	return lfruPolicy[K, V]{divisor: DefaultWindowDivisor}
}

// NewWithWindow returns a Policy factory whose candidate window is the
// least-recently-used 1/divisor of the segment. divisor 1 scans the whole
// segment (pure LFU with LRU tie-break); values < 1 are treated as 1.
func NewWithWindow[K comparable, V any](divisor int) policy.Policy[K, V] {
	if divisor < 1 {
		divisor = 1
	}
	return lfruPolicy[K, V]{divisor: divisor}
}

// New implements policy.Policy.
func (p lfruPolicy[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &lfru[K, V]{h: h, divisor: p.divisor}
}

func (p *lfru[K, V]) OnAdd(n policy.Node[K, V])    { p.h.PushFront(n) }
func (p *lfru[K, V]) OnGet(n policy.Node[K, V])    { p.h.MoveToFront(n) }
func (p *lfru[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }
func (p *lfru[K, V]) OnRemove(policy.Node[K, V])   {}

// Victim walks ceil(len/divisor) nodes from the LRU end and returns the one
// with the lowest frequency. Only a strictly lower counter replaces the
// current pick, so among equals the least recently used node is chosen.
func (p *lfru[K, V]) Victim() policy.Node[K, V] {
	window := (p.h.Len() + p.divisor - 1) / p.divisor
	if window < 1 {
		window = 1
	}

	var victim policy.Node[K, V]
	for n, i := p.h.Back(), 0; n != nil && i < window; n, i = p.h.Prev(n), i+1 {
		if victim == nil || n.Frequency() < victim.Frequency() {
			victim = n
		}
	}
	return victim
}
