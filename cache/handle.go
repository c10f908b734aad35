package cache

import (
	"context"
	"sync/atomic"
)

// Handle holds the cache the rest of the system uses and lets it be swapped
// for a differently configured one. Reconfiguring never mutates a running
// cache: a new cache is built and published atomically, and callers that
// already loaded the old one finish against it.
//
// Handle implements Cache by delegating to the current instance.
type Handle[K comparable, V any] struct {
	cur atomic.Pointer[Cache[K, V]]
}

// NewHandle builds the initial cache from opt.
func NewHandle[K comparable, V any](opt Options[K, V]) (*Handle[K, V], error) {
	c, err := New(opt)
	if err != nil {
		return nil, err
	}
	h := &Handle[K, V]{}
	h.cur.Store(&c)
	return h, nil
}

// Load returns the current cache.
func (h *Handle[K, V]) Load() Cache[K, V] { return *h.cur.Load() }

// Reconfigure builds a cache from opt and swaps it in. On a configuration
// error the current cache stays in place. The new cache starts empty.
func (h *Handle[K, V]) Reconfigure(opt Options[K, V]) error {
	c, err := New(opt)
	if err != nil {
		return err
	}
	h.cur.Store(&c)
	return nil
}

func (h *Handle[K, V]) Get(ctx context.Context, k K, p Provider[K, V]) (V, error) {
	return h.Load().Get(ctx, k, p)
}
func (h *Handle[K, V]) GetIfPresent(k K) (V, bool) { return h.Load().GetIfPresent(k) }
func (h *Handle[K, V]) Put(k K, v V)               { h.Load().Put(k, v) }
func (h *Handle[K, V]) Invalidate(k K)             { h.Load().Invalidate(k) }
func (h *Handle[K, V]) InvalidateAll()             { h.Load().InvalidateAll() }
func (h *Handle[K, V]) CleanUp()                   { h.Load().CleanUp() }
func (h *Handle[K, V]) Stats() Stats               { return h.Load().Stats() }
func (h *Handle[K, V]) Len() int                   { return h.Load().Len() }

var _ Cache[string, int] = (*Handle[string, int])(nil)
