package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/IvanBrykalov/prefcache/internal/singleflight"
	"github.com/IvanBrykalov/prefcache/internal/util"
	"github.com/IvanBrykalov/prefcache/policy/lfru"
)

// ErrNoProvider is returned by Get when it is called with a nil provider and
// no Loader was configured.
var ErrNoProvider = errors.New("cache: no provider")

// cache is the segmented implementation of Cache.
type cache[K comparable, V any] struct {
	segments []*segment[K, V]
	hash     func(K) uint64
	exp      expiry
	opt      Options[K, V]
	logger   log.Logger

	stats statsCounter
	sf    singleflight.Group[K, V]
}

// New validates opt and constructs a cache. Defaults for nil collaborators
// are documented on Options.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if err := opt.Config.Validate(); err != nil {
		return nil, err
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lfru.New[K, V]()
	}
	if opt.Hash == nil {
		if !util.CanHash[K]() {
			return nil, fmt.Errorf("%w: no default hash for key type %v, set Options.Hash", ErrInvalidConfig, reflect.TypeOf((*K)(nil)).Elem())
		}
		opt.Hash = util.Hash64[K]
	}
	if opt.Logger == nil {
		opt.Logger = log.NewNopLogger()
	}

	c := &cache[K, V]{
		hash:   opt.Hash,
		exp:    newExpiry(opt.WriteTTL, opt.IdleTTL),
		opt:    opt,
		logger: log.With(opt.Logger, "component", "cache"),
	}
	if opt.Disabled {
		level.Debug(c.logger).Log("msg", "cache disabled, reads go straight to the provider")
		return c, nil
	}

	caps := util.SplitCapacity(opt.MaxSize, opt.SegmentCount)
	c.segments = make([]*segment[K, V], opt.SegmentCount)
	for i := range c.segments {
		c.segments[i] = newSegment(caps[i], c)
	}
	level.Debug(c.logger).Log(
		"msg", "cache configured",
		"max_size", opt.MaxSize,
		"segments", opt.SegmentCount,
		"segment_capacity", caps[0],
		"write_ttl", opt.WriteTTL,
		"idle_ttl", opt.IdleTTL,
		"record_stats", opt.RecordStats,
	)
	return c, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	c, err := New(opt)
	if err != nil {
		panic(err)
	}
	return c
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Get(ctx context.Context, k K, p Provider[K, V]) (V, error) {
	if p == nil {
		p = c.opt.Loader
	}
	if p == nil {
		var zero V
		return zero, ErrNoProvider
	}
	if c.opt.Disabled {
		return p(ctx, k)
	}

	s := c.segmentFor(k)
	if v, ok := s.get(k, c.now()); ok {
		c.recordHit()
		return v, nil
	}
	c.recordMiss()

	if !c.opt.CoalesceLoads {
		return c.load(ctx, s, k, p)
	}
	// The shared load outlives any one caller: each waiter gives up on its
	// own ctx, but the provider only stops on its own deadline.
	detached := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do(ctx, k, func() (V, error) {
		return c.load(detached, s, k, p)
	})
	return v, err
}

func (c *cache[K, V]) GetIfPresent(k K) (V, bool) {
	if c.opt.Disabled {
		var zero V
		return zero, false
	}
	v, ok := c.segmentFor(k).get(k, c.now())
	if ok {
		c.recordHit()
	} else {
		c.recordMiss()
	}
	return v, ok
}

func (c *cache[K, V]) Put(k K, v V) {
	if c.opt.Disabled {
		return
	}
	c.segmentFor(k).put(k, v, c.now())
}

func (c *cache[K, V]) Invalidate(k K) {
	if c.opt.Disabled {
		return
	}
	c.segmentFor(k).remove(k)
}

// InvalidateAll clears segments in ascending index order, one lock at a time.
// It is a best-effort reset, not an atomic snapshot across segments.
func (c *cache[K, V]) InvalidateAll() {
	for _, s := range c.segments {
		s.clear()
	}
	c.stats.reset()
	level.Debug(c.logger).Log("msg", "cache invalidated")
}

func (c *cache[K, V]) CleanUp() {
	if !c.exp.enabled() {
		return
	}
	now := c.now()
	removed := 0
	for _, s := range c.segments {
		removed += s.sweep(now)
	}
	level.Debug(c.logger).Log("msg", "cache cleanup", "removed", removed)
}

func (c *cache[K, V]) Stats() Stats { return c.stats.snapshot() }

func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.segments {
		total += s.size()
	}
	return total
}

// ---- helpers ----

// load calls the provider outside any segment lock and inserts a successful
// result under a freshly acquired one.
func (c *cache[K, V]) load(ctx context.Context, s *segment[K, V], k K, p Provider[K, V]) (V, error) {
	gen := s.beginLoad(k)
	defer s.endLoad(k)

	start := time.Now()
	v, err := p(ctx, k)
	d := time.Since(start)

	if c.opt.RecordStats {
		c.stats.recordLoad(d, err)
	}
	c.opt.Metrics.Load(d, err)
	if err != nil {
		level.Debug(c.logger).Log("msg", "provider failed", "key", k, "duration", d, "err", err)
		var zero V
		return zero, err
	}

	s.putLoaded(k, v, c.now(), gen)
	return v, nil
}

func (c *cache[K, V]) recordHit() {
	if c.opt.RecordStats {
		c.stats.hits.Add(1)
	}
	c.opt.Metrics.Hit()
}

func (c *cache[K, V]) recordMiss() {
	if c.opt.RecordStats {
		c.stats.misses.Add(1)
	}
	c.opt.Metrics.Miss()
}

// segmentFor routes k to stableHash(k) mod segmentCount.
func (c *cache[K, V]) segmentFor(k K) *segment[K, V] {
	return c.segments[util.ShardIndex(c.hash(k), len(c.segments))]
}

func (c *cache[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}
