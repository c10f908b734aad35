// Package prefs serves typed preferences from a durable Store through a
// segmented in-memory cache.
//
// Reads go through the cache and fall back to the store on a miss. Writes
// commit to the store first and only then update the cache, so a failed
// write never leaves a value cached that the store does not hold.
//
//	st, _ := boltstore.Open("prefs.db", "prefs")
//	p, _ := prefs.New[[]byte](st, cache.Options[string, []byte]{Config: cache.DefaultConfig()})
//	_ = p.Set(ctx, "theme", []byte("dark"))
//	v, _ := p.Get(ctx, "theme")
package prefs
