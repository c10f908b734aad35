package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/IvanBrykalov/prefcache/cache"
	"github.com/IvanBrykalov/prefcache/internal/util"
)

// writeStripes bounds the number of per-key write locks.
const writeStripes = 64

// Preferences is a read-through, write-through view of a Store.
type Preferences[V any] struct {
	store  Store[V]
	h      *cache.Handle[string, V]
	clone  func(V) V
	logger log.Logger

	// A store commit and the cache update that follows it run under the
	// key's stripe, so the cache always ends up with the last committed value.
	writeMu [writeStripes]sync.Mutex

	mu  sync.Mutex // serializes Reconfigure
	opt cache.Options[string, V]
}

// Option customizes Preferences.
type Option[V any] func(*Preferences[V])

// WithClone sets the copy applied to values entering the cache through Set
// and to values returned by Get. Use it for values with shared backing
// storage (slices, maps, pointers) so callers cannot mutate cached state.
// []byte values are cloned with bytes.Clone by default.
func WithClone[V any](clone func(V) V) Option[V] {
	return func(p *Preferences[V]) { p.clone = clone }
}

// New builds Preferences over store. opt.Loader is replaced with a reader
// of store; every other option is passed to the cache as given.
func New[V any](store Store[V], opt cache.Options[string, V], opts ...Option[V]) (*Preferences[V], error) {
	if opt.Logger == nil {
		opt.Logger = log.NewNopLogger()
	}
	p := &Preferences[V]{
		store:  store,
		clone:  defaultClone[V](),
		logger: log.With(opt.Logger, "component", "prefs"),
	}
	for _, o := range opts {
		o(p)
	}
	opt.Loader = p.read
	h, err := cache.NewHandle(opt)
	if err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
	}
	p.h, p.opt = h, opt
	return p, nil
}

func defaultClone[V any]() func(V) V {
	var zero V
	if _, ok := any(zero).([]byte); ok {
		return func(v V) V { return any(bytes.Clone(any(v).([]byte))).(V) }
	}
	return nil
}

func (p *Preferences[V]) copyOf(v V) V {
	if p.clone == nil {
		return v
	}
	return p.clone(v)
}

func (p *Preferences[V]) stripe(key string) int {
	return util.ShardIndex(util.Hash64(key), writeStripes)
}

func (p *Preferences[V]) read(ctx context.Context, key string) (V, error) {
	return p.store.Read(ctx, key)
}

// Get returns the value for key, reading the store on a cache miss.
// Absent keys yield an error matching ErrNotFound.
func (p *Preferences[V]) Get(ctx context.Context, key string) (V, error) {
	v, err := p.h.Get(ctx, key, nil)
	if err != nil {
		return v, fmt.Errorf("prefs: read %q: %w", key, err)
	}
	return p.copyOf(v), nil
}

// GetOrDefault returns def when key is absent or cannot be read.
func (p *Preferences[V]) GetOrDefault(ctx context.Context, key string, def V) V {
	v, err := p.h.Get(ctx, key, nil)
	switch {
	case err == nil:
		return p.copyOf(v)
	case errors.Is(err, ErrNotFound):
		return def
	default:
		level.Warn(p.logger).Log("msg", "falling back to default", "key", key, "err", err)
		return def
	}
}

// Set writes key to the store, then caches it. Concurrent Sets of one key
// leave the cache holding whichever value the store committed last.
func (p *Preferences[V]) Set(ctx context.Context, key string, v V) error {
	mu := &p.writeMu[p.stripe(key)]
	mu.Lock()
	defer mu.Unlock()

	if err := p.store.Write(ctx, key, v); err != nil {
		return fmt.Errorf("prefs: write %q: %w", key, err)
	}
	p.h.Put(key, p.copyOf(v))
	return nil
}

// SetMany commits kv to the store in one batch, then caches every pair.
// Nothing is cached if the batch fails.
func (p *Preferences[V]) SetMany(ctx context.Context, kv map[string]V) error {
	if len(kv) == 0 {
		return nil
	}
	// Lock stripes in ascending order so overlapping batches cannot deadlock.
	stripes := make([]int, 0, len(kv))
	for k := range kv {
		stripes = append(stripes, p.stripe(k))
	}
	slices.Sort(stripes)
	stripes = slices.Compact(stripes)
	for _, i := range stripes {
		p.writeMu[i].Lock()
	}
	defer func() {
		for _, i := range stripes {
			p.writeMu[i].Unlock()
		}
	}()

	if err := p.store.WriteBatch(ctx, kv); err != nil {
		return fmt.Errorf("prefs: write batch of %d: %w", len(kv), err)
	}
	for k, v := range kv {
		p.h.Put(k, p.copyOf(v))
	}
	return nil
}

// Remove deletes key from the store, then drops it from the cache.
func (p *Preferences[V]) Remove(ctx context.Context, key string) error {
	mu := &p.writeMu[p.stripe(key)]
	mu.Lock()
	defer mu.Unlock()

	if err := p.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("prefs: delete %q: %w", key, err)
	}
	p.h.Invalidate(key)
	return nil
}

// Reconfigure replaces the cache configuration. The new cache starts cold;
// collaborators (policy, metrics, logger, ...) carry over.
func (p *Preferences[V]) Reconfigure(cfg cache.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	opt := p.opt
	opt.Config = cfg
	if err := p.h.Reconfigure(opt); err != nil {
		return fmt.Errorf("prefs: reconfigure: %w", err)
	}
	p.opt = opt
	level.Info(p.logger).Log("msg", "cache reconfigured", "max_size", cfg.MaxSize, "disabled", cfg.Disabled)
	return nil
}

// CleanUp removes expired entries from the cache.
func (p *Preferences[V]) CleanUp() { p.h.CleanUp() }

// Stats returns cache statistics.
func (p *Preferences[V]) Stats() cache.Stats { return p.h.Stats() }

// Cache exposes the underlying cache, e.g. for prom.NewStatsCollector.
// Values read through it are not cloned.
func (p *Preferences[V]) Cache() cache.Cache[string, V] { return p.h }
