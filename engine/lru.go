package engine

import (
	"sync"

	"github.com/distcache/distcache/internal/list"
)

// LRU is a classic move-to-front least-recently-used engine.
// MRU sits at the tail of the intrusive list, LRU at the head, so eviction
// always pops the front.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	cap     int
	m       map[K]*list.Entry[K, V]
	l       *list.List[K, V]
	metrics Metrics
}

// NewLRU constructs an LRU engine with the given capacity. capacity must be
// at least 1. A nil metrics is replaced with NoopMetrics.
func NewLRU[K comparable, V any](capacity int, metrics Metrics) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		cap:     capacity,
		m:       make(map[K]*list.Entry[K, V], capacity),
		l:       list.New[K, V](),
		metrics: metricsOrNoop(metrics),
	}
}

// Get returns the value for k, promoting it to MRU on hit.
func (c *LRU[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[k]
	if !ok {
		c.metrics.Miss()
		var zero V
		return zero, false
	}
	c.l.MoveToBack(e)
	c.metrics.Hit()
	return e.Value, true
}

// Put inserts or updates k. On update the entry is moved to MRU. On a
// fresh insert at capacity, the LRU (head) entry is evicted first.
func (c *LRU[K, V]) Put(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.m[k]; ok {
		e.Value = v
		c.l.MoveToBack(e)
		return
	}

	if c.l.Size() >= c.cap {
		victim := c.l.PopFront()
		if victim != nil {
			delete(c.m, victim.Key)
			c.metrics.Evict()
		}
	}

	e := &list.Entry[K, V]{Key: k, Value: v, Freq: 1}
	c.l.PushBack(e)
	c.m[k] = e
	c.metrics.Size(c.l.Size())
}

// Remove deletes k if present.
func (c *LRU[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[k]
	if !ok {
		return false
	}
	c.l.Remove(e)
	delete(c.m, k)
	c.metrics.Size(c.l.Size())
	return true
}

// Contains reports presence without promoting the entry.
func (c *LRU[K, V]) Contains(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[k]
	return ok
}

// GetFreq returns the entry's frequency counter (used by LRU-K's cold
// stage to count accesses to unpromoted keys) and whether k is present.
func (c *LRU[K, V]) GetFreq(k K) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[k]
	if !ok {
		return 0, false
	}
	return e.Freq, true
}

// SetFreq overwrites the entry's frequency counter. No-op if k is absent.
func (c *LRU[K, V]) SetFreq(k K, f int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.m[k]; ok {
		e.Freq = f
	}
}

// Len returns the number of resident entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.l.Size()
}

// Cap returns the configured capacity.
func (c *LRU[K, V]) Cap() int { return c.cap }
