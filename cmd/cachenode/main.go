// Command cachenode runs a single cluster member: it serves peer RPCs,
// registers itself with the coordinator, and joins the consistent hash
// ring via its peer picker.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distcache/distcache/cacheserver"
	"github.com/distcache/distcache/coordinator"
	"github.com/distcache/distcache/engine"
	"github.com/distcache/distcache/group"
	"github.com/distcache/distcache/metrics/prom"
	"github.com/distcache/distcache/peer"
	"github.com/distcache/distcache/ring"
)

func main() {
	var (
		addr        = flag.String("addr", "127.0.0.1:9000", "RPC listen address advertised to the cluster")
		etcdEndpts  = flag.String("etcd", "127.0.0.1:2379", "comma-separated etcd endpoints")
		serviceName = flag.String("service", "distcache", "coordinator service name")
		groupName   = flag.String("group", "default", "cache group name")
		capacity    = flag.Int("cap", 100_000, "local cache capacity (entries)")
		eng         = flag.String("engine", "lru", "eviction engine: lru | lruk | lfu | avglfu | arc")
		loaderKind  = flag.String("loader", "none", "fallback loader: none | echo")
		replicas    = flag.Int("replicas", ring.DefaultReplicas, "virtual nodes per ring member")
		metricsAddr = flag.String("metrics", "", "Prometheus /metrics listen address (disabled if empty)")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	coord, err := coordinator.New(strings.Split(*etcdEndpts, ","))
	if err != nil {
		logrus.WithError(err).Fatal("cachenode: connecting to coordinator")
	}
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := ring.New(*replicas, ring.MinReplicas, ring.MaxReplicas)
	picker, err := peer.NewPicker(ctx, *serviceName, *addr, coord, r)
	if err != nil {
		logrus.WithError(err).Fatal("cachenode: constructing peer picker")
	}
	defer picker.Close()

	var cacheMetrics engine.Metrics
	if *metricsAddr != "" {
		cacheMetrics = prom.NewCacheMetrics(nil, "distcache", "node", nil)
	}
	localCache, err := newEngine(*eng, *capacity, cacheMetrics)
	if err != nil {
		logrus.WithError(err).Fatal("cachenode: building local cache engine")
	}
	g := group.NewGroup(*groupName, localCache, loader(*loaderKind), group.PeerRing{Picker: picker})
	defer g.Close()

	srv := cacheserver.New(*serviceName, *addr, coord)
	if err := srv.ListenAndServe(ctx); err != nil {
		logrus.WithError(err).Fatal("cachenode: starting RPC listener")
	}

	if *metricsAddr != "" {
		ringMetrics := prom.NewRingMetrics(nil, "distcache", "node")
		groupMetrics := prom.NewGroupMetrics(nil, "distcache", *groupName)
		go reportRingMetrics(ctx, r, ringMetrics)
		go reportGroupMetrics(ctx, g, groupMetrics)
		go func() {
			logrus.WithField("addr", *metricsAddr).Info("cachenode: serving /metrics")
			if err := http.ListenAndServe(*metricsAddr, promhttp.Handler()); err != nil {
				logrus.WithError(err).Error("cachenode: metrics server failed")
			}
		}()
	}

	logrus.WithFields(logrus.Fields{
		"addr": *addr, "service": *serviceName, "group": *groupName, "engine": *eng,
	}).Info("cachenode: ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		logrus.WithError(err).Error("cachenode: stopping")
	}
}

func newEngine(name string, capacity int, metrics engine.Metrics) (engine.Engine[string, []byte], error) {
	switch name {
	case "lru":
		return engine.NewLRU[string, []byte](capacity, metrics), nil
	case "lruk":
		return engine.NewLRUK[string, []byte](capacity/2, capacity/2, 2, metrics), nil
	case "lfu":
		return engine.NewLFU[string, []byte](capacity, metrics), nil
	case "avglfu":
		return engine.NewAvgLFU[string, []byte](capacity, 16, metrics), nil
	case "arc":
		return engine.NewARC[string, []byte](capacity, metrics), nil
	default:
		return nil, fmt.Errorf("unknown engine: %q (use lru, lruk, lfu, avglfu, or arc)", name)
	}
}

// reportRingMetrics pushes this node's own peer-selection ring's per-node
// traffic into Prometheus on a fixed tick, reusing the ring the picker
// already maintains rather than building a second one.
func reportRingMetrics(ctx context.Context, r *ring.Ring, m *prom.RingMetrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, _ := r.Stats()
			m.Observe(stats)
		}
	}
}

// reportGroupMetrics pushes the group's cumulative get/hit/peer-load/
// local-load/error counters and its current in-flight count into
// Prometheus on a fixed tick.
func reportGroupMetrics(ctx context.Context, g *group.Group, m *prom.GroupMetrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Observe(g.Snapshot())
			m.SetInFlight(g.InFlight())
		}
	}
}

// loader builds the group's fallback loader. "none" always reports the
// key absent — appropriate when this cluster only ever serves values
// other nodes Set directly. "echo" returns the key itself as the value,
// useful for smoke-testing a cluster without a real backing store.
func loader(kind string) group.Loader {
	switch kind {
	case "echo":
		return func(_ context.Context, key string) ([]byte, bool, error) {
			return []byte(key), false, nil
		}
	default:
		return func(_ context.Context, _ string) ([]byte, bool, error) {
			return nil, true, nil
		}
	}
}
