package engine

import "sync"

// LRUK is a two-stage LRU: a "cold" stage absorbs scans by counting
// accesses to unpromoted keys, and only promotes a key to the "hot" stage
// once it has been touched k times. The cold stage reuses
// LRU's GetFreq/SetFreq to track per-key access counts without a separate
// map.
type LRUK[K comparable, V any] struct {
	mu sync.Mutex

	k    int
	hot  *LRU[K, V]
	cold *LRU[K, V]
}

// NewLRUK constructs an LRU-K engine: hotCap for the hot (promoted) stage,
// coldCap for the cold (probationary) stage, and promotionThreshold k ≥ 1
// accesses before a cold key is promoted to hot.
func NewLRUK[K comparable, V any](hotCap, coldCap, k int, metrics Metrics) *LRUK[K, V] {
	if k < 1 {
		k = 1
	}
	return &LRUK[K, V]{
		k:    k,
		hot:  NewLRU[K, V](hotCap, metrics),
		cold: NewLRU[K, V](coldCap, nil),
	}
}

// Get returns the value for k. A hit in cold bumps the access counter and
// promotes to hot once it reaches the threshold.
func (e *LRUK[K, V]) Get(k K) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.hot.Get(k); ok {
		return v, true
	}

	v, ok := e.cold.Get(k)
	if !ok {
		var zero V
		return zero, false
	}
	f, _ := e.cold.GetFreq(k)
	if f >= e.k {
		e.cold.Remove(k)
		e.hot.Put(k, v)
		return v, true
	}
	e.cold.SetFreq(k, f+1)
	return v, true
}

// Put inserts or updates k. A key already hot is updated in place. A key
// in cold below the promotion threshold stays in cold with its access
// counter bumped; at or above threshold it is promoted to hot.
func (e *LRUK[K, V]) Put(k K, v V) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hot.Contains(k) {
		e.hot.Put(k, v)
		return
	}

	f, ok := e.cold.GetFreq(k)
	if ok && f >= e.k {
		e.cold.Remove(k)
		e.hot.Put(k, v)
		return
	}

	e.cold.Put(k, v)
	if ok {
		e.cold.SetFreq(k, f+1)
	}
}

// Remove deletes k from whichever stage holds it.
func (e *LRUK[K, V]) Remove(k K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hot.Remove(k) {
		return true
	}
	return e.cold.Remove(k)
}

// Contains reports presence in either stage.
func (e *LRUK[K, V]) Contains(k K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hot.Contains(k) || e.cold.Contains(k)
}

// Len returns the total resident count across both stages.
func (e *LRUK[K, V]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hot.Len() + e.cold.Len()
}

// Cap returns the combined capacity of both stages.
func (e *LRUK[K, V]) Cap() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hot.Cap() + e.cold.Cap()
}
