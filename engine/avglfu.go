package engine

import "github.com/distcache/distcache/internal/list"

// AvgLFU extends LFU with a decay pass that runs whenever the running
// average frequency exceeds maxAvg, so long-lived entries can eventually
// be displaced once overall access pressure is high.
//
// AvgLFU wires itself into the base LFU's onGet/onEvict extension points
// rather than overriding Get/Put, so every LFU code path (promotion,
// eviction, minFreq bookkeeping) is reused unmodified.
type AvgLFU[K comparable, V any] struct {
	*LFU[K, V]

	totalFreq int
	maxAvg    int
}

// NewAvgLFU constructs an AvgLFU engine. maxAvg must be at least 1.
func NewAvgLFU[K comparable, V any](capacity, maxAvg int, metrics Metrics) *AvgLFU[K, V] {
	if maxAvg < 1 {
		maxAvg = 1
	}
	l := newLFUBase[K, V](capacity, metrics)
	a := &AvgLFU[K, V]{LFU: l, maxAvg: maxAvg}
	l.onGet = a.onGetHook
	l.onEvict = a.onEvictHook
	return a
}

// onGetHook runs under l.mu (called from within Get only). It tracks the
// running total and triggers at most one decay pass per call.
func (a *AvgLFU[K, V]) onGetHook() {
	a.totalFreq++
	size := len(a.LFU.m)
	if size > 0 && a.totalFreq/size > a.maxAvg {
		a.decayLocked()
	}
}

// onEvictHook runs under l.mu from evictLocked.
func (a *AvgLFU[K, V]) onEvictHook(freq int) {
	a.totalFreq -= freq
	if a.totalFreq < 0 {
		a.totalFreq = 0
	}
}

// decayLocked subtracts maxAvg from every entry's frequency (floored at 1),
// rebuilds the frequency buckets, and recomputes minFreq and totalFreq. If
// every entry is already at or below maxAvg, frequencies collapse to 1.
// Entries whose frequency exceeds 2*maxAvg keep a frequency above maxAvg, so the
// average may remain above maxAvg after the pass — that overshoot is
// tolerated rather than looped on again this call.
func (a *AvgLFU[K, V]) decayLocked() {
	l := a.LFU
	entries := make([]*list.Entry[K, V], 0, len(l.m))
	for _, e := range l.m {
		entries = append(entries, e)
	}

	l.freqLists = make(map[int]*list.List[K, V])
	a.totalFreq = 0
	for _, e := range entries {
		newFreq := e.Freq - a.maxAvg
		if newFreq < 1 {
			newFreq = 1
		}
		e.Freq = newFreq
		l.bucket(newFreq).PushBack(e)
		a.totalFreq += newFreq
	}
	l.recomputeMinFreq()
}
