package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/prefcache/cache"
)

// StatsSource is what StatsCollector reads at scrape time; cache.Cache and
// cache.Handle satisfy it.
type StatsSource interface {
	Stats() cache.Stats
	Len() int
}

// NewStatsCollector registers scrape-time metrics that mirror src.Stats():
// request, hit, miss, load, load failure and eviction counts, total load
// time, hit rate and resident entries. Counters are reported as-is, so an
// InvalidateAll shows up as a counter reset.
func NewStatsCollector(reg prometheus.Registerer, ns, sub string, src StatsSource) []prometheus.Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	stat := func(name, help string, f func(cache.Stats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: name, Help: help,
		}, func() float64 { return f(src.Stats()) })
	}

	cs := []prometheus.Collector{
		stat("requests_total", "Get calls", func(s cache.Stats) float64 { return float64(s.RequestCount) }),
		stat("hits_total", "Get calls served from the cache", func(s cache.Stats) float64 { return float64(s.HitCount) }),
		stat("misses_total", "Get calls not served from the cache", func(s cache.Stats) float64 { return float64(s.MissCount) }),
		stat("loads_total", "Provider calls", func(s cache.Stats) float64 { return float64(s.LoadCount) }),
		stat("load_failures_total", "Failed provider calls", func(s cache.Stats) float64 { return float64(s.LoadFailureCount) }),
		stat("evictions_total", "Size evictions", func(s cache.Stats) float64 { return float64(s.EvictionCount) }),
		stat("load_seconds_total", "Total time spent in provider calls", func(s cache.Stats) float64 {
			return float64(s.TotalLoadTimeNanos) / 1e9
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "hit_ratio", Help: "Hits divided by requests",
		}, func() float64 { return src.Stats().HitRate() }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "entries", Help: "Resident entries",
		}, func() float64 { return float64(src.Len()) }),
	}
	reg.MustRegister(cs...)
	return cs
}
