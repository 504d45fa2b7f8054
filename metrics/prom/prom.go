// Package prom adapts this module's observability seams (engine.Metrics,
// ring traffic, group Stats, single-flight coalescing) to Prometheus.
package prom

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/distcache/distcache/engine"
	"github.com/distcache/distcache/group"
	"github.com/distcache/distcache/ring"
)

// CacheMetrics implements engine.Metrics and exports Prometheus
// counters/gauges for a single engine or sharded wrapper instance. Safe
// for concurrent use; all Prometheus metric types are goroutine-safe.
type CacheMetrics struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  prometheus.Counter
	sizeEnt prometheus.Gauge
}

// NewCacheMetrics constructs a Prometheus metrics adapter for an engine.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func NewCacheMetrics(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *CacheMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &CacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "hits_total",
			Help: "Cache hits", ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "misses_total",
			Help: "Cache misses", ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "evictions_total",
			Help: "Cache evictions", ConstLabels: constLabels,
		}),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "size_entries",
			Help: "Number of resident entries", ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt)
	return a
}

func (a *CacheMetrics) Hit()  { a.hits.Inc() }
func (a *CacheMetrics) Miss() { a.misses.Inc() }
func (a *CacheMetrics) Evict() {
	a.evicts.Inc()
}
func (a *CacheMetrics) Size(entries int) { a.sizeEnt.Set(float64(entries)) }

var _ engine.Metrics = (*CacheMetrics)(nil)

// RingMetrics exports consistent-hash ring traffic counters: per-node
// lookup counts and the current node count.
type RingMetrics struct {
	traffic *prometheus.GaugeVec
	nodes   prometheus.Gauge
}

func NewRingMetrics(reg prometheus.Registerer, ns, sub string) *RingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &RingMetrics{
		traffic: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "ring_traffic",
			Help: "Lookups routed to each ring node since the last rebalance reset",
		}, []string{"node"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "ring_nodes",
			Help: "Number of nodes currently on the ring",
		}),
	}
	reg.MustRegister(m.traffic, m.nodes)
	return m
}

// Observe records ring.Ring.Stats' current per-node traffic totals. A
// gauge rather than a counter because ring.Ring.Rebalance zeroes the
// underlying counters, which would otherwise read as a traffic drop to
// a monotonic Prometheus counter.
func (m *RingMetrics) Observe(stats []ring.NodeStats) {
	for _, s := range stats {
		m.traffic.WithLabelValues(s.Node).Set(float64(s.Traffic))
	}
	m.nodes.Set(float64(len(stats)))
}

// GroupMetrics exports cache-group Stats counters: gets, hits,
// peer-loads, local-loads, errors.
type GroupMetrics struct {
	gets       prometheus.Counter
	hits       prometheus.Counter
	peerLoads  prometheus.Counter
	localLoads prometheus.Counter
	errors     prometheus.Counter
	inFlight   prometheus.Gauge

	mu   sync.Mutex
	last group.StatsSnapshot
}

func NewGroupMetrics(reg prometheus.Registerer, ns, groupName string) *GroupMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"group": groupName}
	m := &GroupMetrics{
		gets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "group", Name: "gets_total",
			Help: "Group Get calls", ConstLabels: labels,
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "group", Name: "hits_total",
			Help: "Group local-cache hits", ConstLabels: labels,
		}),
		peerLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "group", Name: "peer_loads_total",
			Help: "Group loads satisfied by a peer", ConstLabels: labels,
		}),
		localLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "group", Name: "local_loads_total",
			Help: "Group loads that ran the local loader", ConstLabels: labels,
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "group", Name: "errors_total",
			Help: "Group loader errors", ConstLabels: labels,
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "group", Name: "coalesced_in_flight",
			Help: "Single-flight calls currently in flight", ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.gets, m.hits, m.peerLoads, m.localLoads, m.errors, m.inFlight)
	return m
}

// Observe pushes a group.StatsSnapshot's cumulative totals into the
// Prometheus counters. group.Stats never resets, so Observe tracks the
// last snapshot it saw internally and adds only the delta, since a
// Prometheus counter must only move forward by the amount actually
// accrued since the last scrape-driving call.
func (m *GroupMetrics) Observe(snap group.StatsSnapshot) {
	m.mu.Lock()
	prev := m.last
	m.last = snap
	m.mu.Unlock()

	m.gets.Add(float64(snap.Gets - prev.Gets))
	m.hits.Add(float64(snap.Hits - prev.Hits))
	m.peerLoads.Add(float64(snap.PeerLoads - prev.PeerLoads))
	m.localLoads.Add(float64(snap.LocalLoads - prev.LocalLoads))
	m.errors.Add(float64(snap.Errors - prev.Errors))
}

// SetInFlight updates the current single-flight in-flight gauge.
func (m *GroupMetrics) SetInFlight(n int) { m.inFlight.Set(float64(n)) }
