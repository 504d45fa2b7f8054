package engine

import (
	"sync"

	"github.com/distcache/distcache/internal/list"
)

// LFU is a frequency-bucketed least-frequently-used engine.
// Entries are grouped into per-frequency lists; minFreq tracks the
// smallest frequency with a non-empty bucket so eviction is O(1). onGet
// and onEvict are extension points AvgLFU overrides; they are no-ops here.
type LFU[K comparable, V any] struct {
	mu        sync.Mutex
	cap       int
	m         map[K]*list.Entry[K, V]
	freqLists map[int]*list.List[K, V]
	minFreq   int // 0 means "no entries" (⊥)
	metrics   Metrics

	onGet   func()
	onEvict func(freq int)
}

// NewLFU constructs an LFU engine with the given capacity.
func NewLFU[K comparable, V any](capacity int, metrics Metrics) *LFU[K, V] {
	return newLFUBase[K, V](capacity, metrics)
}

func newLFUBase[K comparable, V any](capacity int, metrics Metrics) *LFU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	l := &LFU[K, V]{
		cap:       capacity,
		m:         make(map[K]*list.Entry[K, V], capacity),
		freqLists: make(map[int]*list.List[K, V]),
		metrics:   metricsOrNoop(metrics),
	}
	l.onGet = func() {}
	l.onEvict = func(int) {}
	return l
}

func (l *LFU[K, V]) bucket(freq int) *list.List[K, V] {
	b, ok := l.freqLists[freq]
	if !ok {
		b = list.New[K, V]()
		l.freqLists[freq] = b
	}
	return b
}

// promote moves e from its current bucket to the next frequency bucket,
// fixing up minFreq if the old bucket just emptied out.
func (l *LFU[K, V]) promote(e *list.Entry[K, V]) {
	oldFreq := e.Freq
	oldBucket := l.freqLists[oldFreq]
	oldBucket.Remove(e)
	oldBucketEmptied := oldBucket.Empty()
	if oldBucketEmptied {
		delete(l.freqLists, oldFreq)
	}
	e.Freq = oldFreq + 1
	l.bucket(e.Freq).PushBack(e)
	if oldBucketEmptied && l.minFreq == oldFreq {
		l.recomputeMinFreq()
	}
}

func (l *LFU[K, V]) recomputeMinFreq() {
	min := 0
	for f := range l.freqLists {
		if min == 0 || f < min {
			min = f
		}
	}
	l.minFreq = min
}

// Get returns the value for k, bumping its frequency by one on hit.
func (l *LFU[K, V]) Get(k K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[k]
	if !ok {
		l.metrics.Miss()
		var zero V
		return zero, false
	}
	l.promote(e)
	l.metrics.Hit()
	l.onGet()
	return e.Value, true
}

// Put inserts or updates k. An update promotes the entry's frequency
// exactly as Get would, but does not invoke the onGet hook — that fires
// only for actual reads. A miss at capacity evicts the LFU victim — the
// front (LRU-within-bucket tie-break) of the minFreq bucket.
func (l *LFU[K, V]) Put(k K, v V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.m[k]; ok {
		e.Value = v
		l.promote(e)
		return
	}

	if len(l.m) >= l.cap {
		l.evictLocked()
	}

	e := &list.Entry[K, V]{Key: k, Value: v, Freq: 1}
	l.bucket(1).PushBack(e)
	l.m[k] = e
	l.minFreq = 1
	l.metrics.Size(len(l.m))
}

func (l *LFU[K, V]) evictLocked() {
	victims := l.freqLists[l.minFreq]
	if victims == nil {
		return
	}
	victim := victims.PopFront()
	if victim == nil {
		return
	}
	if victims.Empty() {
		delete(l.freqLists, l.minFreq)
	}
	delete(l.m, victim.Key)
	l.onEvict(victim.Freq)
	l.metrics.Evict()
	if len(l.m) == 0 {
		l.minFreq = 0
	} else if victims.Empty() {
		l.recomputeMinFreq()
	}
}

// Remove deletes k if present.
func (l *LFU[K, V]) Remove(k K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.m[k]
	if !ok {
		return false
	}
	b := l.freqLists[e.Freq]
	b.Remove(e)
	if b.Empty() {
		delete(l.freqLists, e.Freq)
	}
	delete(l.m, k)
	if len(l.m) == 0 {
		l.minFreq = 0
	} else if l.minFreq == e.Freq && b.Empty() {
		l.recomputeMinFreq()
	}
	l.metrics.Size(len(l.m))
	return true
}

// Contains reports presence without affecting frequency.
func (l *LFU[K, V]) Contains(k K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.m[k]
	return ok
}

// Len returns the number of resident entries.
func (l *LFU[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Cap returns the configured capacity.
func (l *LFU[K, V]) Cap() int { return l.cap }

// MinFreq exposes the current minimum frequency (0/⊥ when empty), used by
// tests asserting that invariant directly.
func (l *LFU[K, V]) MinFreq() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minFreq
}
