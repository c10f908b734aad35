package cache

import "context"

// Cache is a segmented, in-memory key/value cache placed in front of a
// durable store. All methods are safe for concurrent use.
//
// Writers own the authoritative write path: commit to the durable store
// first, then Put or Invalidate here, so the cache never leads the store.
type Cache[K comparable, V any] interface {
	// Get returns the live value for k. On a miss it calls p (or the Loader
	// bound in Options when p is nil) outside any lock and caches a
	// successful result. Provider errors are returned unchanged and nothing
	// is cached. Returns ErrNoProvider if neither p nor a Loader is set.
	Get(ctx context.Context, k K, p Provider[K, V]) (V, error)

	// GetIfPresent returns the live value for k without calling a provider.
	GetIfPresent(k K) (V, bool)

	// Put inserts or replaces k→v, resetting its timestamps and access count.
	Put(k K, v V)

	// Invalidate removes k if present.
	Invalidate(k K)

	// InvalidateAll clears every segment and resets all statistics to zero.
	InvalidateAll()

	// CleanUp removes every entry whose write or idle TTL has elapsed.
	// It does not change statistics.
	CleanUp()

	// Stats returns a snapshot of the counters.
	Stats() Stats

	// Len returns the number of resident entries across all segments,
	// including expired entries not yet swept.
	Len() int
}
