package prefs

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a Store when a key has no value.
var ErrNotFound = errors.New("prefs: not found")

// Store is the durable side of Preferences. Implementations must be safe for
// concurrent use and return ErrNotFound (possibly wrapped) for absent keys.
type Store[V any] interface {
	Read(ctx context.Context, key string) (V, error)
	Write(ctx context.Context, key string, v V) error
	// WriteBatch commits all of kv or none of it.
	WriteBatch(ctx context.Context, kv map[string]V) error
	Delete(ctx context.Context, key string) error
}

// MemStore is a map-backed Store, handy in tests and examples.
type MemStore[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func NewMemStore[V any]() *MemStore[V] {
	return &MemStore[V]{m: make(map[string]V)}
}

func (s *MemStore[V]) Read(ctx context.Context, key string) (V, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return zero, ErrNotFound
	}
	return v, nil
}

func (s *MemStore[V]) Write(ctx context.Context, key string, v V) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
	return nil
}

func (s *MemStore[V]) WriteBatch(ctx context.Context, kv map[string]V) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	for k, v := range kv {
		s.m[k] = v
	}
	s.mu.Unlock()
	return nil
}

func (s *MemStore[V]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

var _ Store[int] = (*MemStore[int])(nil)
