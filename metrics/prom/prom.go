// Package prom exports cache activity to Prometheus, either as push-style
// hooks (Adapter) or by reading Stats snapshots at scrape time (StatsCollector).
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/prefcache/cache"
)

// Adapter implements cache.Metrics with Prometheus counters and a load
// latency histogram. Safe for concurrent use.
type Adapter struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	loads        prometheus.Counter
	loadFailures prometheus.Counter
	loadDuration prometheus.Histogram
	evicts       *prometheus.CounterVec
}

// New constructs and registers an Adapter.
//   - reg:         registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: name, Help: help, ConstLabels: constLabels,
		})
	}
	a := &Adapter{
		hits:         counter("hits_total", "Cache hits"),
		misses:       counter("misses_total", "Cache misses"),
		loads:        counter("loads_total", "Provider calls made on misses"),
		loadFailures: counter("load_failures_total", "Provider calls that returned an error"),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "load_duration_seconds",
			Help:        "Provider call latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Entries removed by size eviction or expiration",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(a.hits, a.misses, a.loads, a.loadFailures, a.loadDuration, a.evicts)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Load records one provider call.
func (a *Adapter) Load(d time.Duration, err error) {
	a.loads.Inc()
	a.loadDuration.Observe(d.Seconds())
	if err != nil {
		a.loadFailures.Inc()
	}
}

// Evict increments the eviction counter for reason.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

var _ cache.Metrics = (*Adapter)(nil)
