package engine

import (
	"sync"

	"github.com/distcache/distcache/internal/list"
)

const defaultARCPromotionThreshold = 2

// ARC is an Adaptive Replacement Cache. It splits its budget
// between a recency half (R) and a frequency half (F), each with a live
// list and a ghost list of evicted keys. Ghost hits adapt the R/F split by
// one unit per hit; R.live hits promote unconditionally to F, while
// R.live updates via Put only promote once an entry's frequency reaches
// promotionThreshold.
type ARC[K comparable, V any] struct {
	mu sync.Mutex

	capTotal           int
	pr, pf             int
	promotionThreshold int

	rLive     *list.List[K, V]
	rLiveMap  map[K]*list.Entry[K, V]
	rGhost    *list.List[K, struct{}]
	rGhostMap map[K]*list.Entry[K, struct{}]

	fLive     *list.List[K, V]
	fLiveMap  map[K]*list.Entry[K, V]
	fGhost    *list.List[K, struct{}]
	fGhostMap map[K]*list.Entry[K, struct{}]

	metrics Metrics
}

// NewARC constructs an ARC engine of the given total capacity, split
// evenly between R and F (each floored at 1), with the default
// promotion threshold of 2.
func NewARC[K comparable, V any](capacity int, metrics Metrics) *ARC[K, V] {
	return NewARCWithThreshold[K, V](capacity, defaultARCPromotionThreshold, metrics)
}

// NewARCWithThreshold is NewARC with an explicit promotion threshold,
// exposed for tests that need to exercise the adaptation boundary.
func NewARCWithThreshold[K comparable, V any](capacity, promotionThreshold int, metrics Metrics) *ARC[K, V] {
	if capacity < 2 {
		capacity = 2
	}
	if promotionThreshold < 1 {
		promotionThreshold = 1
	}
	pr := capacity / 2
	pf := capacity - pr
	if pr < 1 {
		pr, pf = 1, capacity-1
	}
	if pf < 1 {
		pf, pr = 1, capacity-1
	}
	return &ARC[K, V]{
		capTotal:           capacity,
		pr:                 pr,
		pf:                 pf,
		promotionThreshold: promotionThreshold,
		rLive:              list.New[K, V](),
		rLiveMap:           make(map[K]*list.Entry[K, V]),
		rGhost:             list.New[K, struct{}](),
		rGhostMap:          make(map[K]*list.Entry[K, struct{}]),
		fLive:              list.New[K, V](),
		fLiveMap:           make(map[K]*list.Entry[K, V]),
		fGhost:             list.New[K, struct{}](),
		fGhostMap:          make(map[K]*list.Entry[K, struct{}]),
		metrics:            metricsOrNoop(metrics),
	}
}

// adaptGhost checks k against both ghost lists. A hit removes k from its
// ghost list and grows the half that ghosted it by one, shrinking the
// other half by one, floored at 1 for both halves.
func (a *ARC[K, V]) adaptGhost(k K) {
	if e, ok := a.rGhostMap[k]; ok {
		a.rGhost.Remove(e)
		delete(a.rGhostMap, k)
		if a.pf > 1 {
			a.pr++
			a.pf--
		}
		a.enforceCapacities()
		return
	}
	if e, ok := a.fGhostMap[k]; ok {
		a.fGhost.Remove(e)
		delete(a.fGhostMap, k)
		if a.pr > 1 {
			a.pf++
			a.pr--
		}
		a.enforceCapacities()
	}
}

// enforceCapacities evicts from either live list down to its current
// capacity after an adaptation shrinks it.
func (a *ARC[K, V]) enforceCapacities() {
	for a.rLive.Size() > a.pr {
		a.evictRLiveToGhost()
	}
	for a.fLive.Size() > a.pf {
		a.evictFLiveToGhost()
	}
}

func (a *ARC[K, V]) evictRLiveToGhost() {
	victim := a.rLive.PopFront()
	if victim == nil {
		return
	}
	delete(a.rLiveMap, victim.Key)
	ge := &list.Entry[K, struct{}]{Key: victim.Key}
	a.rGhost.PushBack(ge)
	a.rGhostMap[victim.Key] = ge
	a.metrics.Evict()
	a.trimRGhost()
}

func (a *ARC[K, V]) evictFLiveToGhost() {
	victim := a.fLive.PopFront()
	if victim == nil {
		return
	}
	delete(a.fLiveMap, victim.Key)
	ge := &list.Entry[K, struct{}]{Key: victim.Key}
	a.fGhost.PushBack(ge)
	a.fGhostMap[victim.Key] = ge
	a.metrics.Evict()
	a.trimFGhost()
}

func (a *ARC[K, V]) trimRGhost() {
	for a.rGhost.Size() > a.pr {
		old := a.rGhost.PopFront()
		delete(a.rGhostMap, old.Key)
	}
}

func (a *ARC[K, V]) trimFGhost() {
	for a.fGhost.Size() > a.pf {
		old := a.fGhost.PopFront()
		delete(a.fGhostMap, old.Key)
	}
}

// promoteToF moves e from R.live to F.live, evicting F's LRU entry to
// F.ghost first if F.live is already at capacity.
func (a *ARC[K, V]) promoteToF(e *list.Entry[K, V]) {
	a.rLive.Remove(e)
	delete(a.rLiveMap, e.Key)
	if a.fLive.Size() >= a.pf {
		a.evictFLiveToGhost()
	}
	a.fLive.PushBack(e)
	a.fLiveMap[e.Key] = e
}

// Get returns the value for k. A ghost hit only adapts the R/F split; it
// never itself produces a value (ghosts carry no value). A live hit in R
// promotes unconditionally to F with freq+1; a live hit in F bumps
// frequency and recency.
func (a *ARC[K, V]) Get(k K) (V, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.adaptGhost(k)

	if e, ok := a.rLiveMap[k]; ok {
		e.Freq++
		a.promoteToF(e)
		a.metrics.Hit()
		return e.Value, true
	}
	if e, ok := a.fLiveMap[k]; ok {
		e.Freq++
		a.fLive.MoveToBack(e)
		a.metrics.Hit()
		return e.Value, true
	}

	a.metrics.Miss()
	var zero V
	return zero, false
}

// Put inserts or updates k. Ghost adaptation runs first. An update to an
// R-resident key promotes to F once its frequency reaches
// promotionThreshold; otherwise it stays in R, recency-bumped. A fresh
// key is inserted into R.live, evicting R's LRU to R.ghost if R is full.
func (a *ARC[K, V]) Put(k K, v V) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.adaptGhost(k)

	if e, ok := a.rLiveMap[k]; ok {
		e.Value = v
		e.Freq++
		if e.Freq >= a.promotionThreshold {
			a.promoteToF(e)
		} else {
			a.rLive.MoveToBack(e)
		}
		return
	}
	if e, ok := a.fLiveMap[k]; ok {
		e.Value = v
		e.Freq++
		a.fLive.MoveToBack(e)
		return
	}

	if a.rLive.Size() >= a.pr {
		a.evictRLiveToGhost()
	}
	e := &list.Entry[K, V]{Key: k, Value: v, Freq: 1}
	a.rLive.PushBack(e)
	a.rLiveMap[k] = e
	a.metrics.Size(a.rLive.Size() + a.fLive.Size())
}

// Remove deletes k from whichever list currently holds it, live or
// ghost, and reports whether it was found.
func (a *ARC[K, V]) Remove(k K) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.rLiveMap[k]; ok {
		a.rLive.Remove(e)
		delete(a.rLiveMap, k)
		return true
	}
	if e, ok := a.fLiveMap[k]; ok {
		a.fLive.Remove(e)
		delete(a.fLiveMap, k)
		return true
	}
	if e, ok := a.rGhostMap[k]; ok {
		a.rGhost.Remove(e)
		delete(a.rGhostMap, k)
		return true
	}
	if e, ok := a.fGhostMap[k]; ok {
		a.fGhost.Remove(e)
		delete(a.fGhostMap, k)
		return true
	}
	return false
}

// Contains reports live residency only; ghosted keys do not count.
func (a *ARC[K, V]) Contains(k K) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.rLiveMap[k]
	if ok {
		return true
	}
	_, ok = a.fLiveMap[k]
	return ok
}

// Len returns the combined live size of R and F.
func (a *ARC[K, V]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rLive.Size() + a.fLive.Size()
}

// Cap returns the total configured capacity (R + F).
func (a *ARC[K, V]) Cap() int { return a.capTotal }

// RCapacity and FCapacity expose the current adaptive split, used by
// tests asserting the ghost-adaptation invariant.
func (a *ARC[K, V]) RCapacity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pr
}

func (a *ARC[K, V]) FCapacity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pf
}
