package cache

import (
	"time"

	"github.com/IvanBrykalov/prefcache/internal/util"
)

// Stats is a point-in-time snapshot of the cache counters.
// RequestCount is always HitCount + MissCount.
type Stats struct {
	RequestCount       uint64
	HitCount           uint64
	MissCount          uint64
	LoadCount          uint64 // provider calls, successful or not
	LoadFailureCount   uint64
	EvictionCount      uint64 // size evictions only
	TotalLoadTimeNanos int64
}

// HitRate is HitCount/RequestCount, or 0 when there were no requests.
func (s Stats) HitRate() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(s.RequestCount)
}

// MissRate is MissCount/RequestCount, or 0 when there were no requests.
func (s Stats) MissRate() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return float64(s.MissCount) / float64(s.RequestCount)
}

// AverageLoadPenalty is the mean provider latency.
func (s Stats) AverageLoadPenalty() time.Duration {
	if s.LoadCount == 0 {
		return 0
	}
	return time.Duration(s.TotalLoadTimeNanos / int64(s.LoadCount))
}

// statsCounter holds the live counters, one cache line each so segments
// recording concurrently do not contend on a shared line. Callers check
// Config.RecordStats before touching it.
type statsCounter struct {
	hits         util.PaddedAtomicUint64
	misses       util.PaddedAtomicUint64
	loads        util.PaddedAtomicUint64
	loadFailures util.PaddedAtomicUint64
	evictions    util.PaddedAtomicUint64
	loadNanos    util.PaddedAtomicInt64
}

func (s *statsCounter) recordLoad(d time.Duration, err error) {
	s.loads.Add(1)
	s.loadNanos.Add(int64(d))
	if err != nil {
		s.loadFailures.Add(1)
	}
}

func (s *statsCounter) snapshot() Stats {
	hits, misses := s.hits.Load(), s.misses.Load()
	return Stats{
		RequestCount:       hits + misses,
		HitCount:           hits,
		MissCount:          misses,
		LoadCount:          s.loads.Load(),
		LoadFailureCount:   s.loadFailures.Load(),
		EvictionCount:      s.evictions.Load(),
		TotalLoadTimeNanos: s.loadNanos.Load(),
	}
}

func (s *statsCounter) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.loads.Store(0)
	s.loadFailures.Store(0)
	s.evictions.Store(0)
	s.loadNanos.Store(0)
}
