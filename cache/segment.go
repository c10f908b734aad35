package cache

import (
	"sync"

	"github.com/IvanBrykalov/prefcache/policy"
)

// segment is an independent shard of the keyspace with its own lock, table
// and intrusive doubly linked list (head=MRU, tail=LRU). Every read and write
// of its state happens under mu, so len never exceeds cap as observed by any
// other goroutine.
type segment[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[K]*entry[K, V]
	head *entry[K, V]
	tail *entry[K, V]
	len  int
	cap  int

	pol policy.ShardPolicy[K, V]

	// loads tracks keys with a provider call in flight. A Put or Invalidate
	// of such a key (or a clear) bumps its gen, and a load that started under
	// an older gen does not insert its result: a value read before a durable
	// write can never replace or resurrect what that write published.
	loads map[K]*pendingLoad

	exp     expiry
	stats   *statsCounter
	record  bool
	metrics Metrics
	onEvict func(K, V, EvictReason)
}

func newSegment[K comparable, V any](capacity int, c *cache[K, V]) *segment[K, V] {
	s := &segment[K, V]{
		m:       make(map[K]*entry[K, V], capacity),
		loads:   make(map[K]*pendingLoad),
		cap:     capacity,
		exp:     c.exp,
		stats:   &c.stats,
		record:  c.opt.RecordStats,
		metrics: c.opt.Metrics,
		onEvict: c.opt.OnEvict,
	}
	s.pol = c.opt.Policy.New(segmentHooks[K, V]{s: s})
	return s
}

// get returns a live value and records the access. An expired entry is
// removed and reported as absent.
func (s *segment[K, V]) get(k K, now int64) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	if s.exp.expired(e.writeTime, e.accessTime, now) {
		s.evictLocked(e, EvictExpired)
		var zero V
		return zero, false
	}
	e.touch(now)
	s.pol.OnGet(e)
	return e.val, true
}

// put inserts or replaces k unconditionally.
func (s *segment[K, V]) put(k K, v V, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersedeLocked(k)
	s.setLocked(k, v, now)
}

type pendingLoad struct {
	refs int
	gen  uint64
}

// beginLoad registers a provider call for k and returns the generation it
// must still match when inserting. Every beginLoad needs one endLoad.
func (s *segment[K, V]) beginLoad(k K) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.loads[k]
	if p == nil {
		p = &pendingLoad{}
		s.loads[k] = p
	}
	p.refs++
	return p.gen
}

func (s *segment[K, V]) endLoad(k K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.loads[k]; p != nil {
		if p.refs--; p.refs <= 0 {
			delete(s.loads, k)
		}
	}
}

// putLoaded inserts a provider result unless k was written or invalidated
// since the load began. A live entry inserted by a concurrent load of the
// same key is left in place. Must be called between beginLoad and endLoad.
func (s *segment[K, V]) putLoaded(k K, v V, now int64, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.loads[k]; p == nil || p.gen != gen {
		return
	}
	if e, ok := s.m[k]; ok && !s.exp.expired(e.writeTime, e.accessTime, now) {
		return
	}
	s.setLocked(k, v, now)
}

func (s *segment[K, V]) setLocked(k K, v V, now int64) {
	if e, ok := s.m[k]; ok {
		e.reset(v, now)
		s.pol.OnUpdate(e)
		return
	}
	if s.cap == 0 {
		return
	}

	// Make room first so the table never holds more than cap entries.
	for s.len >= s.cap {
		victim := s.pol.Victim()
		if victim == nil {
			panic("cache: eviction policy returned no victim for a full segment")
		}
		s.evictLocked(victim.(*entry[K, V]), EvictSize)
	}

	e := newEntry(k, v, now)
	s.m[k] = e
	s.pol.OnAdd(e)
	if s.len > s.cap {
		panic("cache: segment exceeded its capacity")
	}
}

// remove deletes k; it reports whether an entry was present.
func (s *segment[K, V]) remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersedeLocked(k)
	e, ok := s.m[k]
	if !ok {
		return false
	}
	s.unlinkLocked(e)
	return true
}

// clear drops every entry without callbacks.
func (s *segment[K, V]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.loads {
		p.gen++
	}
	for e := s.head; e != nil; {
		next := e.next
		s.pol.OnRemove(e)
		e.prev, e.next = nil, nil
		e = next
	}
	s.m = make(map[K]*entry[K, V], s.cap)
	s.head, s.tail, s.len = nil, nil, 0
}

// sweep removes every expired entry and returns how many were removed.
func (s *segment[K, V]) sweep(now int64) int {
	if !s.exp.enabled() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for e := s.tail; e != nil; {
		prev := e.prev
		if s.exp.expired(e.writeTime, e.accessTime, now) {
			s.evictLocked(e, EvictExpired)
			removed++
		}
		e = prev
	}
	return removed
}

func (s *segment[K, V]) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len
}

// -------------------- internals (mu held) --------------------

// supersedeLocked invalidates any in-flight load of k.
func (s *segment[K, V]) supersedeLocked(k K) {
	if p := s.loads[k]; p != nil {
		p.gen++
	}
}

// evictLocked removes e, accounts size evictions and notifies observers.
func (s *segment[K, V]) evictLocked(e *entry[K, V], reason EvictReason) {
	s.unlinkLocked(e)
	if reason == EvictSize && s.record {
		s.stats.evictions.Add(1)
	}
	s.metrics.Evict(reason)
	if cb := s.onEvict; cb != nil {
		cb(e.key, e.val, reason)
	}
}

func (s *segment[K, V]) unlinkLocked(e *entry[K, V]) {
	s.pol.OnRemove(e)
	s.removeNode(e)
	delete(s.m, e.key)
}

func (s *segment[K, V]) insertFront(e *entry[K, V]) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
	s.len++
}

func (s *segment[K, V]) moveToFront(e *entry[K, V]) {
	if e == s.head {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *segment[K, V]) removeNode(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if s.head == e {
		s.head = e.next
	}
	if s.tail == e {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
	s.len--
}

// -------------------- policy hooks --------------------

// segmentHooks adapts the segment's list operations to policy.Hooks.
// Nil entries are returned as untyped nil so policies can compare with nil.
type segmentHooks[K comparable, V any] struct{ s *segment[K, V] }

func (h segmentHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*entry[K, V])) }
func (h segmentHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.insertFront(x.(*entry[K, V])) }
func (h segmentHooks[K, V]) Len() int                        { return h.s.len }

func (h segmentHooks[K, V]) Back() policy.Node[K, V] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}

func (h segmentHooks[K, V]) Prev(x policy.Node[K, V]) policy.Node[K, V] {
	if p := x.(*entry[K, V]).prev; p != nil {
		return p
	}
	return nil
}
