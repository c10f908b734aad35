// Command bench runs a synthetic read-through workload against the cache and
// exposes Prometheus metrics (and optionally pprof) while it runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/prefcache/cache"
	pmet "github.com/IvanBrykalov/prefcache/metrics/prom"
	"github.com/IvanBrykalov/prefcache/policy"
	"github.com/IvanBrykalov/prefcache/policy/lfru"
	"github.com/IvanBrykalov/prefcache/policy/lru"
	"github.com/IvanBrykalov/prefcache/policy/twoq"
)

func main() {
	cfg := cache.DefaultConfig()
	cfg.MaxSize = 100_000
	cfg.RegisterFlags("cache.", flag.CommandLine)

	var (
		policyName  = flag.String("policy", "lfru", "eviction policy: lfru | lru | 2q")
		coalesce    = flag.Bool("coalesce", false, "collapse concurrent misses on the same key")
		loadLatency = flag.Duration("load-latency", 200*time.Microsecond, "simulated provider latency")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = max-size/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
		logLevel    = flag.String("log.level", "info", "debug | info | warn | error")
	)
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, levelOption(*logLevel))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)

	if *pprofAddr != "" {
		go func() {
			level.Info(logger).Log("msg", "serving pprof", "addr", *pprofAddr)
			level.Error(logger).Log("msg", "pprof server stopped", "err", http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	metrics := pmet.New(prometheus.DefaultRegisterer, "prefcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		level.Info(logger).Log("msg", "serving metrics", "addr", *metricsAddr)
		level.Error(logger).Log("msg", "metrics server stopped", "err", http.ListenAndServe(*metricsAddr, nil))
	}()

	var pol policy.Policy[string, string]
	switch *policyName {
	case "lfru":
		pol = lfru.New[string, string]()
	case "lru":
		pol = lru.New[string, string]()
	case "2q":
		perSeg := cfg.MaxSize / max(cfg.SegmentCount, 1)
		pol = twoq.New[string, string](perSeg/4, perSeg/2)
	default:
		level.Error(logger).Log("msg", "unknown policy", "policy", *policyName)
		os.Exit(2)
	}

	latency := *loadLatency
	provider := func(ctx context.Context, k string) (string, error) {
		if latency > 0 {
			t := time.NewTimer(latency)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return "v:" + k, nil
	}

	c, err := cache.New(cache.Options[string, string]{
		Config:        cfg,
		Policy:        pol,
		Loader:        provider,
		CoalesceLoads: *coalesce,
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		level.Error(logger).Log("msg", "invalid cache config", "err", err)
		os.Exit(2)
	}
	pmet.NewStatsCollector(prometheus.DefaultRegisterer, "prefcache", "bench_stats", c)

	pl := *preload
	if pl == 0 {
		pl = cfg.MaxSize / 2
	}
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		c.Put(k, "v:"+k)
	}

	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	workersN := max(*workers, 1)

	var reads, writes, failures atomic.Uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		id := w
		g.Go(func() error {
			// rand.Rand is not goroutine-safe: one per worker.
			r := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			z := rand.NewZipf(r, *zipfS, *zipfV, keysMax)

			for gctx.Err() == nil {
				k := "k:" + strconv.FormatUint(z.Uint64(), 10)
				if int(r.Int31n(100)) < readPctVal {
					reads.Add(1)
					if _, err := c.Get(gctx, k, nil); err != nil && gctx.Err() == nil {
						failures.Add(1)
					}
				} else {
					writes.Add(1)
					c.Put(k, "v"+strconv.Itoa(r.Int()))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	s := c.Stats()
	ops := reads.Load() + writes.Load()
	fmt.Printf("policy=%s max-size=%d segments=%d workers=%d keys=%d dur=%v seed=%d\n",
		*policyName, cfg.MaxSize, cfg.SegmentCount, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  failures=%d\n",
		ops, float64(ops)/elapsed.Seconds(), reads.Load(), writes.Load(), failures.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  loads=%d  avg-load=%v  evictions=%d\n",
		s.HitCount, s.MissCount, s.HitRate()*100, s.LoadCount,
		s.AverageLoadPenalty(), s.EvictionCount)
	fmt.Printf("Len()=%d\n", c.Len())
}

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
