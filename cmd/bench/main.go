// Command bench runs a synthetic workload against a sharded engine and exposes optional pprof/Prometheus endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distcache/distcache/engine"
	"github.com/distcache/distcache/metrics/prom"
	"github.com/distcache/distcache/sharded"
)

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 100_000, "cache capacity (entries)")
		shards   = flag.Int("shards", 0, "number of shards (0=auto)")
		eng      = flag.String("engine", "lru", "eviction engine: lru | lruk | lfu | avglfu | arc")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := prom.NewCacheMetrics(nil, "distcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build the sharded engine ----
	factory, err := engineFactory(*eng, *capacity, *shards)
	if err != nil {
		log.Fatal(err)
	}
	c := sharded.New[string, string](*capacity, *shards, metrics, factory)

	// ---- Preload half capacity to get a realistic hit-rate ----
	if *preload <= 0 {
		*preload = *capacity / 2
	}
	for i := 0; i < *preload; i++ {
		k := "k:" + strconv.Itoa(i)
		c.Put(k, "v"+strconv.Itoa(i))
	}

	// ---- Run workers against a Zipfian key distribution ----
	var ops, hits int64
	var wg sync.WaitGroup
	stop := time.After(*duration)
	start := time.Now()

	wg.Add(*workers)
	for w := 0; w < *workers; w++ {
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			zipf := rand.NewZipf(rnd, *zipfS, *zipfV, uint64(*keys-1))
			if zipf == nil {
				log.Fatal("invalid zipf parameters")
			}
			localOps, localHits := int64(0), int64(0)
			for {
				select {
				case <-stop:
					atomic.AddInt64(&ops, localOps)
					atomic.AddInt64(&hits, localHits)
					return
				default:
				}
				k := "k:" + strconv.FormatUint(zipf.Uint64(), 10)
				localOps++
				if rnd.Intn(100) < *readPct {
					if _, ok := c.Get(k); ok {
						localHits++
					}
				} else {
					c.Put(k, "v")
				}
			}
		}(*seed + int64(w))
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("engine=%s shards=%d workers=%d ops=%d hits=%d (%.1f%%) throughput=%.0f ops/s len=%d\n",
		*eng, c.ShardCount(), *workers, ops, hits, 100*float64(hits)/float64(max64(ops, 1)),
		float64(ops)/elapsed.Seconds(), c.Len())
}

func engineFactory(name string, capacity, shards int) (sharded.Factory[string, string], error) {
	switch name {
	case "lru":
		return func(cap int, m engine.Metrics) engine.Engine[string, string] {
			return engine.NewLRU[string, string](cap, m)
		}, nil
	case "lruk":
		return func(cap int, m engine.Metrics) engine.Engine[string, string] {
			return engine.NewLRUK[string, string](cap/2, cap/2, 2, m)
		}, nil
	case "lfu":
		return func(cap int, m engine.Metrics) engine.Engine[string, string] {
			return engine.NewLFU[string, string](cap, m)
		}, nil
	case "avglfu":
		return func(cap int, m engine.Metrics) engine.Engine[string, string] {
			return engine.NewAvgLFU[string, string](cap, 16, m)
		}, nil
	case "arc":
		return func(cap int, m engine.Metrics) engine.Engine[string, string] {
			return engine.NewARC[string, string](cap, m)
		}, nil
	default:
		return nil, fmt.Errorf("unknown engine: %q (use lru, lruk, lfu, avglfu, or arc)", name)
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
