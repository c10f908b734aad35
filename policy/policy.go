// Package policy defines the contract between a cache segment and its
// eviction policy.
package policy

// Node is the minimal view of a resident entry a policy needs: its key, a
// pointer to its value and its approximate access frequency.
type Node[K comparable, V any] interface {
	Key() K
	Value() *V
	// Frequency is the entry's access counter: 1 on insert, +1 on every hit.
	Frequency() uint32
}

// Hooks expose O(1) operations on the segment's intrusive MRU↔LRU list.
// Implementations are provided by the segment.
//
// Concurrency: all hook calls happen under the segment lock.
// Hooks manage only the list; the segment owns the key->entry table.
type Hooks[K comparable, V any] interface {
	// MoveToFront promotes the node to MRU.
	MoveToFront(Node[K, V])
	// PushFront inserts the node at MRU (used on admission).
	PushFront(Node[K, V])
	// Back returns the current LRU node, or nil if the segment is empty.
	Back() Node[K, V]
	// Prev returns the node one step closer to MRU than n, or nil at the head.
	Prev(n Node[K, V]) Node[K, V]
	// Len returns the number of resident nodes in the segment.
	Len() int
}

// ShardPolicy is a per-segment eviction policy bound to segment hooks.
// All methods are invoked under the segment lock.
//
// Semantics:
//   - OnAdd places a newly admitted node (normally via PushFront).
//   - OnGet/OnUpdate record a use (normally MoveToFront).
//   - OnRemove notifies the policy that the node left the segment for any
//     reason; the segment performs the actual unlinking.
//   - Victim names the node to evict when the segment is full. It must not
//     mutate the list and returns nil only when the segment is empty.
type ShardPolicy[K comparable, V any] interface {
	OnAdd(Node[K, V])
	OnGet(Node[K, V])
	OnUpdate(Node[K, V])
	OnRemove(Node[K, V])
	Victim() Node[K, V]
}

// Policy is a factory that creates segment-local policy instances.
type Policy[K comparable, V any] interface {
	New(Hooks[K, V]) ShardPolicy[K, V]
}
