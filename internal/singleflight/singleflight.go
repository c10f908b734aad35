// Package singleflight collapses concurrent loads of the same key into one call.
package singleflight

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Group coalesces concurrent calls for the same key K so that the supplied fn
// runs at most once per in-flight window. Other callers wait for the shared
// result.
//
// The first caller for a key becomes the leader and starts fn on its own
// goroutine; every caller, the leader included, then waits on the call's
// done channel or its own ctx. Giving up on ctx unblocks only that caller:
// fn keeps running and the remaining waiters still get its result. fn
// therefore must not depend on any single caller's ctx.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// PanicError is the error followers receive when fn panicked. The leader
// re-panics with Value instead.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("singleflight: load panicked: %v\n\n%s", p.Value, p.Stack)
}

// Do runs fn once for key. shared reports whether the result came from
// another caller's execution (the caller did not start fn itself).
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	c, shared := g.m[key]
	if !shared {
		c = &call[V]{done: make(chan struct{})}
		g.m[key] = c
		go g.run(key, c, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		if pe, ok := c.err.(*PanicError); ok && !shared {
			panic(pe.Value)
		}
		return c.val, c.err, shared
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err(), shared
	}
}

func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	// Waiters must be released even if fn panics, and must not mistake a
	// panic for a zero-value success.
	defer func() {
		if r := recover(); r != nil {
			var zero V
			c.val, c.err = zero, &PanicError{Value: r, Stack: debug.Stack()}
		}
		g.mu.Lock()
		delete(g.m, key)
		g.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn()
}

// InFlight reports the number of keys currently being loaded.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
