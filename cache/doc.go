// Package cache provides a segmented, generic, in-memory cache that sits in
// front of a durable key-value store, with write and idle TTLs, size-bounded
// frequency-aware eviction, load-on-miss through a caller-supplied provider,
// and hit/miss/load/eviction statistics.
//
// Design
//
//   - Concurrency: the keyspace is split into Config.SegmentCount segments,
//     each guarded by its own mutex. A key is routed to
//     xxhash(key) mod SegmentCount. An operation holds at most one segment
//     lock; InvalidateAll visits segments one by one in index order.
//
//   - Storage: each segment keeps a map[K]*entry for lookups and an
//     intrusive MRU↔LRU doubly linked list. Capacities are MaxSize split
//     across segments, so the total never exceeds MaxSize.
//
//   - Eviction: pluggable via the policy package. The default (policy/lfru)
//     picks the entry with the lowest access counter among the
//     least-recently-used third of the segment, ties going to the oldest.
//     Pure LRU and 2Q are also provided.
//
//   - Expiration: WriteTTL counts from the last write, IdleTTL from the last
//     access. Both are evaluated lazily on access; CleanUp sweeps eagerly.
//     There are no background goroutines.
//
//   - Loading: on a miss, Get calls the provider outside the segment lock
//     and inserts a successful result afterwards. Provider errors propagate
//     unchanged and nothing is cached. Concurrent misses on one key may each
//     call the provider unless Options.CoalesceLoads is set.
//
//   - Statistics: with RecordStats, Stats reports requests, hits, misses,
//     loads, load failures, size evictions and total load time. Without it
//     the counters are never written. Options.Metrics receives the same
//     events as hooks (see metrics/prom).
//
// Basic usage
//
//	c, err := cache.New(cache.Options[string, string]{
//	    Config: cache.Config{MaxSize: 1024, SegmentCount: 16, RecordStats: true},
//	})
//	if err != nil {
//	    return err
//	}
//	v, err := c.Get(ctx, "theme", func(ctx context.Context, k string) (string, error) {
//	    return store.Read(ctx, k)
//	})
//
// Write path
//
//	if err := store.Write(ctx, "theme", "dark"); err != nil {
//	    return err
//	}
//	c.Put("theme", "dark") // or c.Invalidate("theme")
//
// Reconfiguration
//
//	h, _ := cache.NewHandle(opt)
//	// later: build a new cache with different TTLs and swap it in
//	_ = h.Reconfigure(newOpt)
package cache
