package prefs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/prefcache/cache"
)

// flakyStore wraps MemStore, counting reads and failing on demand.
type flakyStore struct {
	*MemStore[string]
	reads    atomic.Int64
	failRead atomic.Bool
	failMut  atomic.Bool
}

var errDown = errors.New("store down")

func newFlaky() *flakyStore { return &flakyStore{MemStore: NewMemStore[string]()} }

func (s *flakyStore) Read(ctx context.Context, key string) (string, error) {
	s.reads.Add(1)
	if s.failRead.Load() {
		return "", errDown
	}
	return s.MemStore.Read(ctx, key)
}

func (s *flakyStore) Write(ctx context.Context, key, v string) error {
	if s.failMut.Load() {
		return errDown
	}
	return s.MemStore.Write(ctx, key, v)
}

func (s *flakyStore) WriteBatch(ctx context.Context, kv map[string]string) error {
	if s.failMut.Load() {
		return errDown
	}
	return s.MemStore.WriteBatch(ctx, kv)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.failMut.Load() {
		return errDown
	}
	return s.MemStore.Delete(ctx, key)
}

func newPrefs(t *testing.T, st Store[string]) *Preferences[string] {
	t.Helper()
	p, err := New(st, cache.Options[string, string]{
		Config: cache.Config{MaxSize: 16, SegmentCount: 2, RecordStats: true},
	})
	require.NoError(t, err)
	return p
}

func TestGet_ReadsThroughOnce(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	require.NoError(t, st.MemStore.Write(ctx, "theme", "dark"))
	p := newPrefs(t, st)

	for i := 0; i < 3; i++ {
		v, err := p.Get(ctx, "theme")
		require.NoError(t, err)
		require.Equal(t, "dark", v)
	}
	require.EqualValues(t, 1, st.reads.Load())

	s := p.Stats()
	require.EqualValues(t, 2, s.HitCount)
	require.EqualValues(t, 1, s.MissCount)
	require.EqualValues(t, 1, s.LoadCount)
}

func TestGet_NotFound(t *testing.T) {
	p := newPrefs(t, newFlaky())
	_, err := p.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualValues(t, 1, p.Stats().LoadFailureCount)
	require.Equal(t, 0, p.Cache().Len())
}

func TestGetOrDefault(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	p := newPrefs(t, st)

	require.Equal(t, "light", p.GetOrDefault(ctx, "theme", "light"))

	require.NoError(t, p.Set(ctx, "theme", "dark"))
	require.Equal(t, "dark", p.GetOrDefault(ctx, "theme", "light"))

	st.failRead.Store(true)
	require.Equal(t, "en", p.GetOrDefault(ctx, "lang", "en"))
}

func TestSet_StoreFirst(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	p := newPrefs(t, st)

	require.NoError(t, p.Set(ctx, "a", "1"))
	v, err := p.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "1", v)
	require.EqualValues(t, 0, st.reads.Load(), "Set must populate the cache")

	st.failMut.Store(true)
	err = p.Set(ctx, "a", "2")
	require.ErrorIs(t, err, errDown)

	v, err = p.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "1", v, "failed write must not reach the cache")
}

func TestSetMany(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	p := newPrefs(t, st)

	st.failMut.Store(true)
	require.ErrorIs(t, p.SetMany(ctx, map[string]string{"a": "1", "b": "2"}), errDown)
	require.Equal(t, 0, p.Cache().Len())

	st.failMut.Store(false)
	require.NoError(t, p.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
	require.Equal(t, 2, p.Cache().Len())
	for k, want := range map[string]string{"a": "1", "b": "2"} {
		got, err := st.MemStore.Read(ctx, k)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.NoError(t, p.SetMany(ctx, nil))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	p := newPrefs(t, st)
	require.NoError(t, p.Set(ctx, "a", "1"))

	st.failMut.Store(true)
	require.ErrorIs(t, p.Remove(ctx, "a"), errDown)
	_, ok := p.Cache().GetIfPresent("a")
	require.True(t, ok, "failed delete keeps the cached value")

	st.failMut.Store(false)
	require.NoError(t, p.Remove(ctx, "a"))
	_, ok = p.Cache().GetIfPresent("a")
	require.False(t, ok)
	_, err := p.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReconfigure(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	p := newPrefs(t, st)
	require.NoError(t, p.Set(ctx, "a", "1"))

	err := p.Reconfigure(cache.Config{MaxSize: -1, SegmentCount: 1})
	require.ErrorIs(t, err, cache.ErrInvalidConfig)
	_, ok := p.Cache().GetIfPresent("a")
	require.True(t, ok, "invalid config keeps the running cache")

	require.NoError(t, p.Reconfigure(cache.Config{Disabled: true, SegmentCount: 1}))
	for i := 0; i < 2; i++ {
		v, err := p.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, "1", v)
	}
	require.EqualValues(t, 2, st.reads.Load(), "disabled cache reads the store every time")

	require.NoError(t, p.Reconfigure(cache.Config{MaxSize: 4, SegmentCount: 1}))
	_, err = p.Get(ctx, "a")
	require.NoError(t, err)
	_, err = p.Get(ctx, "a")
	require.NoError(t, err)
	require.EqualValues(t, 3, st.reads.Load())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New[string](NewMemStore[string](), cache.Options[string, string]{
		Config: cache.Config{MaxSize: 1, SegmentCount: 0},
	})
	require.ErrorIs(t, err, cache.ErrInvalidConfig)
}

// gatedStore commits the first Write of a key, then parks until released.
type gatedStore struct {
	*MemStore[string]
	committed chan struct{}
	release   chan struct{}
	first     atomic.Bool
}

func (s *gatedStore) Write(ctx context.Context, key, v string) error {
	if err := s.MemStore.Write(ctx, key, v); err != nil {
		return err
	}
	if s.first.CompareAndSwap(false, true) {
		close(s.committed)
		<-s.release
	}
	return nil
}

func TestSet_ConcurrentWritesCacheLastCommitted(t *testing.T) {
	ctx := context.Background()
	st := &gatedStore{
		MemStore:  NewMemStore[string](),
		committed: make(chan struct{}),
		release:   make(chan struct{}),
	}
	p := newPrefs(t, st)

	firstDone := make(chan error, 1)
	go func() { firstDone <- p.Set(ctx, "k", "v1") }()
	<-st.committed

	secondDone := make(chan error, 1)
	go func() { secondDone <- p.Set(ctx, "k", "v2") }()
	select {
	case err := <-secondDone:
		t.Fatalf("second Set must wait for the first to update the cache, returned %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(st.release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	durable, err := st.MemStore.Read(ctx, "k")
	require.NoError(t, err)
	cached, ok := p.Cache().GetIfPresent("k")
	require.True(t, ok)
	require.Equal(t, durable, cached)
	require.Equal(t, "v2", cached)
}

func TestSetMany_OverlappingBatches(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore[string]()
	p := newPrefs(t, st)

	done := make(chan error, 2)
	go func() { done <- p.SetMany(ctx, map[string]string{"a": "1", "b": "1", "c": "1"}) }()
	go func() { done <- p.SetMany(ctx, map[string]string{"c": "2", "b": "2", "a": "2"}) }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	for _, k := range []string{"a", "b", "c"} {
		durable, err := st.Read(ctx, k)
		require.NoError(t, err)
		cached, ok := p.Cache().GetIfPresent(k)
		require.True(t, ok)
		require.Equal(t, durable, cached, "key %s", k)
	}
}

func TestBytes_CallerBuffersDoNotAliasCache(t *testing.T) {
	ctx := context.Background()
	p, err := New[[]byte](NewMemStore[[]byte](), cache.Options[string, []byte]{
		Config: cache.Config{MaxSize: 8, SegmentCount: 1},
	})
	require.NoError(t, err)

	buf := []byte("dark")
	require.NoError(t, p.Set(ctx, "theme", buf))
	copy(buf, "XXXX")

	got, err := p.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "dark", string(got))

	copy(got, "YYYY")
	again, err := p.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "dark", string(again))

	batch := map[string][]byte{"lang": []byte("en")}
	require.NoError(t, p.SetMany(ctx, batch))
	copy(batch["lang"], "fr")
	require.Equal(t, "en", string(p.GetOrDefault(ctx, "lang", nil)))
}

func TestWithClone(t *testing.T) {
	ctx := context.Background()
	var clones atomic.Int64
	cloneMap := func(m map[string]int) map[string]int {
		clones.Add(1)
		out := make(map[string]int, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	p, err := New(NewMemStore[map[string]int](), cache.Options[string, map[string]int]{
		Config: cache.Config{MaxSize: 8, SegmentCount: 1},
	}, WithClone(cloneMap))
	require.NoError(t, err)

	m := map[string]int{"size": 12}
	require.NoError(t, p.Set(ctx, "font", m))
	m["size"] = 99

	got, err := p.Get(ctx, "font")
	require.NoError(t, err)
	require.Equal(t, 12, got["size"])
	require.EqualValues(t, 2, clones.Load())
}
