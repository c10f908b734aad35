// Package lru implements the classic LRU eviction policy.
package lru

import "github.com/IvanBrykalov/prefcache/policy"

// lru is a "move-to-front" Least-Recently-Used policy; access counters are
// ignored and the victim is always the LRU tail.
type lru[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type lruPolicy[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-segment LRU instances.
func New[K comparable, V any]() policy.Policy[K, V] { return lruPolicy[K, V]{} }

// New implements policy.Policy.
func (lruPolicy[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &lru[K, V]{h: h}
}

// OnAdd places the new entry at MRU.
func (p *lru[K, V]) OnAdd(n policy.Node[K, V]) { p.h.PushFront(n) }

// OnGet promotes the entry to MRU.
func (p *lru[K, V]) OnGet(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnUpdate promotes the entry to MRU (updates are treated as recent use).
func (p *lru[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnRemove is a no-op for pure LRU.
func (p *lru[K, V]) OnRemove(policy.Node[K, V]) {}

// Victim returns the LRU tail.
func (p *lru[K, V]) Victim() policy.Node[K, V] { return p.h.Back() }
