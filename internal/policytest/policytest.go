// Package policytest provides test doubles for exercising eviction policies
// without a cache segment.
package policytest

import "github.com/IvanBrykalov/prefcache/policy"

// Node is a plain policy.Node with a settable frequency.
type Node[K comparable, V any] struct {
	K    K
	V    V
	Freq uint32
}

func (n *Node[K, V]) Key() K            { return n.K }
func (n *Node[K, V]) Value() *V         { return &n.V }
func (n *Node[K, V]) Frequency() uint32 { return n.Freq }

// Hooks is a slice-backed MRU↔LRU list (index 0 is MRU) that also counts calls.
type Hooks[K comparable, V any] struct {
	Order []policy.Node[K, V]

	PushFrontCnt   int
	MoveToFrontCnt int
}

func (h *Hooks[K, V]) indexOf(n policy.Node[K, V]) int {
	for i, x := range h.Order {
		if x == n {
			return i
		}
	}
	return -1
}

func (h *Hooks[K, V]) PushFront(n policy.Node[K, V]) {
	h.PushFrontCnt++
	h.Order = append([]policy.Node[K, V]{n}, h.Order...)
}

func (h *Hooks[K, V]) MoveToFront(n policy.Node[K, V]) {
	h.MoveToFrontCnt++
	if i := h.indexOf(n); i > 0 {
		copy(h.Order[1:i+1], h.Order[:i])
		h.Order[0] = n
	}
}

func (h *Hooks[K, V]) Back() policy.Node[K, V] {
	if len(h.Order) == 0 {
		return nil
	}
	return h.Order[len(h.Order)-1]
}

func (h *Hooks[K, V]) Prev(n policy.Node[K, V]) policy.Node[K, V] {
	if i := h.indexOf(n); i > 0 {
		return h.Order[i-1]
	}
	return nil
}

func (h *Hooks[K, V]) Len() int { return len(h.Order) }

// Drop unlinks n the way a segment would after an eviction.
func (h *Hooks[K, V]) Drop(n policy.Node[K, V]) {
	if i := h.indexOf(n); i >= 0 {
		h.Order = append(h.Order[:i], h.Order[i+1:]...)
	}
}
