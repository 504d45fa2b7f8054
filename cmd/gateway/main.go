// Command gateway runs the stateless HTTP surface in front of a
// distcache cluster, routing requests to whichever node owns each key.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distcache/distcache/coordinator"
	"github.com/distcache/distcache/gateway"
	"github.com/distcache/distcache/metrics/prom"
	"github.com/distcache/distcache/ring"
)

func main() {
	var (
		httpAddr    = flag.String("http", ":8080", "HTTP listen address")
		etcdEndpts  = flag.String("etcd", "127.0.0.1:2379", "comma-separated etcd endpoints")
		serviceName = flag.String("service", "distcache", "coordinator service name to discover")
		replicas    = flag.Int("replicas", ring.DefaultReplicas, "virtual nodes per ring member")
		pollEvery   = flag.Duration("poll", gateway.DefaultPollInterval, "coordinator membership poll interval")
		metricsAddr = flag.String("metrics", "", "Prometheus /metrics listen address (disabled if empty)")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	coord, err := coordinator.New(strings.Split(*etcdEndpts, ","))
	if err != nil {
		logrus.WithError(err).Fatal("gateway: connecting to coordinator")
	}
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := ring.New(*replicas, ring.MinReplicas, ring.MaxReplicas)
	gw, err := gateway.New(ctx, *serviceName, coord, r, *pollEvery)
	if err != nil {
		logrus.WithError(err).Fatal("gateway: constructing")
	}
	defer gw.Close()

	if *metricsAddr != "" {
		ringMetrics := prom.NewRingMetrics(nil, "distcache", "gateway")
		go reportRingMetrics(ctx, r, ringMetrics)
		go func() {
			logrus.WithField("addr", *metricsAddr).Info("gateway: serving /metrics")
			if err := http.ListenAndServe(*metricsAddr, promhttp.Handler()); err != nil {
				logrus.WithError(err).Error("gateway: metrics server failed")
			}
		}()
	}

	srv := &http.Server{Addr: *httpAddr, Handler: gw.Handler()}
	go func() {
		logrus.WithField("addr", *httpAddr).Info("gateway: serving")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("gateway: HTTP server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		logrus.WithError(err).Error("gateway: HTTP shutdown")
	}
}

// reportRingMetrics pushes the gateway's own routing ring's per-node
// traffic into Prometheus every gateway.DefaultPollInterval (the -poll
// flag does not change this tick), reusing the ring this
// process already maintains rather than building a second one.
func reportRingMetrics(ctx context.Context, r *ring.Ring, m *prom.RingMetrics) {
	ticker := time.NewTicker(gateway.DefaultPollInterval)
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
