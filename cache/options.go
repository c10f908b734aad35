package cache

import (
	"context"
	"time"

	"github.com/go-kit/log"

	"github.com/IvanBrykalov/prefcache/policy"
)

// EvictReason explains why an entry left the cache without being invalidated.
type EvictReason int

const (
	// EvictSize: chosen by the eviction policy to keep a segment within capacity.
	EvictSize EvictReason = iota
	// EvictExpired: write or idle TTL elapsed (found on access or by CleanUp).
	EvictExpired
)

func (r EvictReason) String() string {
	switch r {
	case EvictSize:
		return "size"
	case EvictExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Provider computes a fresh value for k on a miss, typically by reading the
// durable store. Errors are returned to the Get caller unchanged.
type Provider[K comparable, V any] func(ctx context.Context, k K) (V, error)

// Metrics exposes cache-level observability hooks. NoopMetrics is used by
// default. Hooks fire independently of Config.RecordStats.
type Metrics interface {
	Hit()
	Miss()
	// Load reports the wall-clock duration and outcome of one provider call.
	Load(d time.Duration, err error)
	Evict(reason EvictReason)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures a cache: the plain Config plus runtime collaborators.
// Zero collaborators get defaults in New:
//   - nil Policy  => frequency-aware LRU (policy/lfru)
//   - nil Hash    => xxhash of the key
//   - nil Metrics => NoopMetrics
//   - nil Clock   => time.Now
//   - nil Logger  => no-op logger
type Options[K comparable, V any] struct {
	Config

	// Policy is the per-segment eviction policy.
	Policy policy.Policy[K, V]

	// Loader is the provider bound at construction; Get uses it when called
	// with a nil provider.
	Loader Provider[K, V]

	// Hash routes keys to segments. It must be deterministic. Required for
	// key types without a default hash (structs, pointers, interfaces).
	Hash func(K) uint64

	// CoalesceLoads collapses concurrent misses on the same key into a
	// single provider call. Off by default: concurrent misses may each call
	// the provider. When on, the shared call is not cancelled by any one
	// caller's ctx, so the provider must bound its own run time.
	CoalesceLoads bool

	// OnEvict is called under the segment lock for size evictions and for
	// expired entries; keep it lightweight. Invalidation does not call it.
	OnEvict func(k K, v V, reason EvictReason)

	Metrics Metrics
	Clock   Clock
	Logger  log.Logger
}
