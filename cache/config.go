package cache

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/IvanBrykalov/prefcache/internal/util"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("cache: invalid config")

// Config is the immutable tuning input of a cache. It carries only plain
// values so it can be bound to flags or decoded from a config file; runtime
// collaborators live in Options.
//
// Changing a Config never affects a running cache: build a new cache (see
// Handle.Reconfigure) instead.
type Config struct {
	// Disabled turns the cache into a pass-through: Get always calls the
	// provider and no entry or counter is ever touched.
	Disabled bool

	// MaxSize bounds the number of resident entries across all segments.
	// It is split across segments so that per-segment capacities sum to
	// MaxSize; 0 caches nothing.
	MaxSize int

	// SegmentCount is the number of independently locked segments (>= 1).
	// MaxSize >= SegmentCount is recommended so every segment holds an entry.
	SegmentCount int

	// WriteTTL expires an entry this long after its last Put or load (0 = never).
	WriteTTL time.Duration

	// IdleTTL expires an entry this long after its last access (0 = never).
	IdleTTL time.Duration

	// RecordStats enables the built-in Stats counters. When false the
	// counters are never written.
	RecordStats bool
}

// DefaultConfig returns a Config sized for a typical preference store.
func DefaultConfig() Config {
	return Config{
		MaxSize:      10_000,
		SegmentCount: util.ReasonableShardCount(),
		RecordStats:  true,
	}
}

// Validate reports configuration errors. New calls it, so a bad Config fails
// at construction rather than on first use.
func (c Config) Validate() error {
	if c.SegmentCount < 1 {
		return fmt.Errorf("%w: segment count must be >= 1, got %d", ErrInvalidConfig, c.SegmentCount)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("%w: max size must be >= 0, got %d", ErrInvalidConfig, c.MaxSize)
	}
	if c.WriteTTL < 0 {
		return fmt.Errorf("%w: write TTL must not be negative, got %s", ErrInvalidConfig, c.WriteTTL)
	}
	if c.IdleTTL < 0 {
		return fmt.Errorf("%w: idle TTL must not be negative, got %s", ErrInvalidConfig, c.IdleTTL)
	}
	return nil
}

// RegisterFlags binds every field to a flag named prefix+<field>, using the
// current values as defaults.
func (c *Config) RegisterFlags(prefix string, f *flag.FlagSet) {
	f.BoolVar(&c.Disabled, prefix+"disabled", c.Disabled, "bypass the cache and always call the provider")
	f.IntVar(&c.MaxSize, prefix+"max-size", c.MaxSize, "maximum number of resident entries")
	f.IntVar(&c.SegmentCount, prefix+"segments", c.SegmentCount, "number of independently locked segments")
	f.DurationVar(&c.WriteTTL, prefix+"write-ttl", c.WriteTTL, "expire entries this long after write (0 = never)")
	f.DurationVar(&c.IdleTTL, prefix+"idle-ttl", c.IdleTTL, "expire entries this long after last access (0 = never)")
	f.BoolVar(&c.RecordStats, prefix+"record-stats", c.RecordStats, "record hit/miss/load/eviction statistics")
}
