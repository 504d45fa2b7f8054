// Package sharded fans keys across independent engine instances from
// package engine to reduce lock contention.
package sharded

import (
	"github.com/distcache/distcache/engine"
	"github.com/distcache/distcache/internal/util"
)

// Factory constructs one engine instance of the given per-shard capacity.
// Passing engine.NewLRU, engine.NewLFU, engine.NewAvgLFU or engine.NewARC
// (curried to fix any extra parameters) selects the eviction policy for
// every shard uniformly.
type Factory[K comparable, V any] func(capacity int, metrics engine.Metrics) engine.Engine[K, V]

// shardSlot holds one shard's engine plus a cache-line pad, so two
// neighboring shards' hot fields (each engine's own mutex and bookkeeping)
// never land on the same cache line and false-share under concurrent
// access from different goroutines.
type shardSlot[K comparable, V any] struct {
	engine engine.Engine[K, V]
	_      util.CacheLinePad
}

// Sharded wraps N independent engine instances behind a single
// Engine-shaped API. It holds no lock of its own — contention is
// confined to whichever shard a key happens to hash into.
type Sharded[K comparable, V any] struct {
	shards []shardSlot[K, V]
	hash   func(K) uint64
}

// New constructs a sharded engine of total capacity split evenly (ceiling)
// across shardCount independent instances built by factory. shardCount <=
// 0 picks util.ReasonableShardCount().
func New[K comparable, V any](capacity, shardCount int, metrics engine.Metrics, factory Factory[K, V]) *Sharded[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	if shardCount <= 0 {
		shardCount = util.ReasonableShardCount()
	}
	perShard := (capacity + shardCount - 1) / shardCount

	shards := make([]shardSlot[K, V], shardCount)
	for i := range shards {
		shards[i].engine = factory(perShard, metrics)
	}
	return &Sharded[K, V]{
		shards: shards,
		hash:   util.Fnv64a[K],
	}
}

func (s *Sharded[K, V]) shardFor(k K) engine.Engine[K, V] {
	idx := util.ShardIndex(s.hash(k), len(s.shards))
	return s.shards[idx].engine
}

// Get delegates to the owning shard.
func (s *Sharded[K, V]) Get(k K) (V, bool) {
	return s.shardFor(k).Get(k)
}

// Put delegates to the owning shard.
func (s *Sharded[K, V]) Put(k K, v V) {
	s.shardFor(k).Put(k, v)
}

// Remove delegates to the owning shard.
func (s *Sharded[K, V]) Remove(k K) bool {
	return s.shardFor(k).Remove(k)
}

// Contains delegates to the owning shard.
func (s *Sharded[K, V]) Contains(k K) bool {
	return s.shardFor(k).Contains(k)
}

// Len sums the resident count across all shards.
func (s *Sharded[K, V]) Len() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.engine.Len()
	}
	return total
}

// Cap sums the configured capacity across all shards.
func (s *Sharded[K, V]) Cap() int {
	total := 0
	for _, sh := range s.shards {
		total += sh.engine.Cap()
	}
	return total
}

// ShardCount reports the number of independent engine instances.
func (s *Sharded[K, V]) ShardCount() int { return len(s.shards) }
