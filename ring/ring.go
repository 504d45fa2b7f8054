// Package ring implements the consistent hash ring used for peer
// selection: a sorted array of 64-bit positions, virtual
// nodes per physical node for distribution smoothing, and per-node
// traffic counters for an (unwired) rebalance policy.
package ring

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Defaults pick a fixed replica count
// with min/max bounds the (unwired) Rebalance pass moves within.
const (
	DefaultReplicas = 50
	MinReplicas     = 10
	MaxReplicas     = 500
)

// NodeStats reports one physical node's current ring footprint.
type NodeStats struct {
	Node     string
	Replicas int
	Traffic  int64
}

// Ring is a consistent hash ring with virtual nodes and traffic counters.
// A single reader-writer lock guards all fields; Get takes the shared
// path, Add/Remove the exclusive path.
type Ring struct {
	mu sync.RWMutex

	positions    []uint64
	posToNode    map[uint64]string
	nodePosition map[string][]uint64
	nodeReplicas map[string]int
	nodeTraffic  map[string]*atomic.Int64
	totalTraffic atomic.Int64

	defaultReplicas int
	minReplicas     int
	maxReplicas     int
}

// New constructs an empty ring. replicas <= 0 uses DefaultReplicas; the
// min/max bounds constrain only the (unwired) Rebalance pass.
func New(replicas, minReplicas, maxReplicas int) *Ring {
	if replicas <= 0 {
		replicas = DefaultReplicas
	}
	if minReplicas <= 0 {
		minReplicas = MinReplicas
	}
	if maxReplicas <= 0 || maxReplicas < minReplicas {
		maxReplicas = MaxReplicas
	}
	return &Ring{
		posToNode:       make(map[uint64]string),
		nodePosition:    make(map[string][]uint64),
		nodeReplicas:    make(map[string]int),
		nodeTraffic:     make(map[string]*atomic.Int64),
		defaultReplicas: replicas,
		minReplicas:     minReplicas,
		maxReplicas:     maxReplicas,
	}
}

// Add inserts node with the ring's default replica count. Re-adding a
// node already present with the same replica count is a no-op and
// returns false. A position collision aborts without partial insertion.
func (r *Ring) Add(node string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(node, r.defaultReplicas)
}

func (r *Ring) addLocked(node string, replicas int) bool {
	if existing, ok := r.nodeReplicas[node]; ok {
		if existing == replicas {
			return false
		}
		r.removeLocked(node)
	}

	computed := make([]uint64, replicas)
	seen := make(map[uint64]bool, replicas)
	for i := 0; i < replicas; i++ {
		pos := xxhash.Sum64String(node + "-" + strconv.Itoa(i))
		if _, exists := r.posToNode[pos]; exists {
			return false
		}
		if seen[pos] {
			return false
		}
		seen[pos] = true
		computed[i] = pos
	}

	for _, pos := range computed {
		r.posToNode[pos] = node
		r.positions = append(r.positions, pos)
	}
	sort.Slice(r.positions, func(i, j int) bool { return r.positions[i] < r.positions[j] })
	r.nodePosition[node] = computed
	r.nodeReplicas[node] = replicas
	if _, ok := r.nodeTraffic[node]; !ok {
		r.nodeTraffic[node] = &atomic.Int64{}
	}
	return true
}

// Remove drops node and all of its virtual positions. Reports whether
// the node was present.
func (r *Ring) Remove(node string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodeReplicas[node]; !ok {
		return false
	}
	r.removeLocked(node)
	return true
}

func (r *Ring) removeLocked(node string) {
	positions := r.nodePosition[node]
	if len(positions) == 0 {
		delete(r.nodeReplicas, node)
		return
	}
	dead := make(map[uint64]bool, len(positions))
	for _, pos := range positions {
		delete(r.posToNode, pos)
		dead[pos] = true
	}
	kept := r.positions[:0]
	for _, pos := range r.positions {
		if !dead[pos] {
			kept = append(kept, pos)
		}
	}
	r.positions = kept
	delete(r.nodePosition, node)
	delete(r.nodeReplicas, node)
	delete(r.nodeTraffic, node)
}

// Get returns the node owning key, incrementing its traffic counter.
// Returns ⊥ (ok=false) when the ring is empty.
func (r *Ring) Get(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.positions) == 0 {
		return "", false
	}
	h := xxhash.Sum64String(key)
	idx := sort.Search(len(r.positions), func(i int) bool { return r.positions[i] >= h })
	if idx == len(r.positions) {
		idx = 0
	}
	node := r.posToNode[r.positions[idx]]
	if counter, ok := r.nodeTraffic[node]; ok {
		counter.Add(1)
	}
	r.totalTraffic.Add(1)
	return node, true
}

// Nodes returns the set of physical nodes currently on the ring, order
// unspecified.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nodes := make([]string, 0, len(r.nodeReplicas))
	for n := range r.nodeReplicas {
		nodes = append(nodes, n)
	}
	return nodes
}

// Stats reports per-node replica and traffic counts, plus the ring-wide
// total, for metrics export.
func (r *Ring) Stats() (stats []NodeStats, total int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats = make([]NodeStats, 0, len(r.nodeReplicas))
	for node, replicas := range r.nodeReplicas {
		var traffic int64
		if c, ok := r.nodeTraffic[node]; ok {
			traffic = c.Load()
		}
		stats = append(stats, NodeStats{Node: node, Replicas: replicas, Traffic: traffic})
	}
	return stats, r.totalTraffic.Load()
}

// Rebalance adjusts each node's replica count one step toward
// maxReplicas if it carried disproportionate traffic (ratio above
// (1+threshold)/n), or one step toward minReplicas if it carried too
// little (below (1-threshold)/n), then resets every traffic counter.
//
// This is the rebalance entry point left for an operator-driven trigger;
// nothing in this module calls it, pending a decision on what external
// trigger (a ticker, a traffic threshold webhook) should drive it.
func (r *Ring) Rebalance(threshold float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.nodeReplicas)
	total := r.totalTraffic.Load()
	if n == 0 || total == 0 {
		return
	}

	type step struct {
		node     string
		replicas int
	}
	var steps []step
	upper := (1 + threshold) / float64(n)
	lower := (1 - threshold) / float64(n)
	for node, replicas := range r.nodeReplicas {
		var traffic int64
		if c, ok := r.nodeTraffic[node]; ok {
			traffic = c.Load()
		}
		ratio := float64(traffic) / float64(total)
		switch {
		case ratio > upper && replicas < r.maxReplicas:
			steps = append(steps, step{node, replicas + 1})
		case ratio < lower && replicas > r.minReplicas:
			steps = append(steps, step{node, replicas - 1})
		}
	}
	for _, s := range steps {
		r.addLocked(s.node, s.replicas)
	}
	for _, c := range r.nodeTraffic {
		c.Store(0)
	}
	r.totalTraffic.Store(0)
}
