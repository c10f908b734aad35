// Package twoq implements the 2Q eviction policy.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/prefcache/policy"
)

// twoQ keeps first-time entries on a probation queue (A1in) and promotes them
// to the main queue (Am) on their first hit. Keys evicted from probation are
// remembered as ghosts (A1out, keys only); a ghost key that comes back is
// admitted straight into Am. One-off scans therefore churn through A1in
// without displacing entries that were read more than once.
//
// Am ordering is the segment's own MRU↔LRU list, driven through hooks.
// Concurrency: all methods are called under the segment lock.
type twoQ[K comparable, V any] struct {
	h policy.Hooks[K, V]

	capIn    int
	capGhost int

	// A1in: MRU at Front() -> LRU at Back(); element.Value is policy.Node.
	inList *list.List
	inIdx  map[policy.Node[K, V]]*list.Element

	// A1out: MRU at Front() -> LRU at Back(); element.Value is K.
	ghostList *list.List
	ghostIdx  map[K]*list.Element
}

// New constructs a 2Q policy factory. Sizes are per segment:
// capIn ≈ 25% of segment capacity, capGhost ≈ 50–100% of it.
func New[K comparable, V any](capIn, capGhost int) policy.Policy[K, V] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy[K, V]{capIn: capIn, capGhost: capGhost}
}

type twoQPolicy[K comparable, V any] struct {
	capIn    int
	capGhost int
}

func (p twoQPolicy[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &twoQ[K, V]{
		h:         h,
		capIn:     p.capIn,
		capGhost:  p.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Node[K, V]]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdd admits ghosts directly into Am and everything else into A1in.
func (q *twoQ[K, V]) OnAdd(n policy.Node[K, V]) {
	k := n.Key()
	q.h.PushFront(n)
	if ge, ok := q.ghostIdx[k]; ok {
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		return
	}
	q.inIdx[n] = q.inList.PushFront(n)
}

// OnGet promotes an A1in node to Am and moves it to MRU.
func (q *twoQ[K, V]) OnGet(n policy.Node[K, V]) {
	if el, ok := q.inIdx[n]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, n)
	}
	q.h.MoveToFront(n)
}

// OnUpdate follows OnGet semantics.
func (q *twoQ[K, V]) OnUpdate(n policy.Node[K, V]) { q.OnGet(n) }

// OnRemove turns an A1in node into a ghost; Am removals leave no trace.
func (q *twoQ[K, V]) OnRemove(n policy.Node[K, V]) {
	el, ok := q.inIdx[n]
	if !ok {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, n)

	k := n.Key()
	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)
	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		delete(q.ghostIdx, tail.Value.(K))
		q.ghostList.Remove(tail)
	}
}

// Victim evicts from A1in while probation is at or over its share,
// otherwise the segment's LRU tail.
func (q *twoQ[K, V]) Victim() policy.Node[K, V] {
	if q.inList.Len() >= q.capIn {
		if el := q.inList.Back(); el != nil {
			return el.Value.(policy.Node[K, V])
		}
	}
	return q.h.Back()
}
