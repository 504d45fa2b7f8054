package engine

import "testing"

// Repeated gets on one hot key eventually push the running average
// frequency above maxAvg, triggering a decay pass that knocks every
// entry's frequency down by maxAvg (floored at 1) and rebuilds minFreq.
func TestAvgLFU_DecayOnAverageExceeded(t *testing.T) {
	t.Parallel()

	c := NewAvgLFU[int, string](2, 1, nil)
	c.Put(1, "a")
	c.Put(2, "b")

	for i := 0; i < 4; i++ {
		if v, ok := c.Get(1); !ok || v != "a" {
			t.Fatalf("get(1) iteration %d = %v,%v want a,true", i, v, ok)
		}
	}

	if c.totalFreq != 5 {
		t.Fatalf("totalFreq after decay = %d want 5", c.totalFreq)
	}
	if got := c.MinFreq(); got != 1 {
		t.Fatalf("MinFreq() after decay = %d want 1", got)
	}
	b4 := c.freqLists[4]
	if b4 == nil || b4.Front() == nil || b4.Front().Key != 1 {
		t.Fatal("expected key 1 to land in the freq-4 bucket after decay")
	}
	b1 := c.freqLists[1]
	if b1 == nil || b1.Front() == nil || b1.Front().Key != 2 {
		t.Fatal("expected key 2 to have floored to the freq-1 bucket after decay")
	}
}

func TestAvgLFU_BehavesAsLFUBelowThreshold(t *testing.T) {
	t.Parallel()

	// maxAvg large enough that normal scenario-2 traffic never decays.
	c := NewAvgLFU[int, string](2, 1000, nil)
	c.Put(1, "a")
	c.Put(2, "b")
	c.Get(1)
	c.Get(1)
	c.Put(3, "c")

	if _, ok := c.Get(2); ok {
		t.Fatal("key 2 should have been evicted (lowest frequency)")
	}
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Fatalf("get(1) = %v,%v want a,true", v, ok)
	}
	if v, ok := c.Get(3); !ok || v != "c" {
		t.Fatalf("get(3) = %v,%v want c,true", v, ok)
	}
}

func TestAvgLFU_EvictDecrementsTotalFreq(t *testing.T) {
	t.Parallel()

	c := NewAvgLFU[int, int](1, 1000, nil)
	c.Put(1, 1)
	c.Get(1) // totalFreq = 1, key1 freq = 2
	c.Put(2, 2) // evicts key1 (only entry), onEvict(2) -> totalFreq = 1 - 2 = -1 -> clamped to 0

	if c.totalFreq != 0 {
		t.Fatalf("totalFreq after eviction = %d want 0 (clamped)", c.totalFreq)
	}
	if !c.Contains(2) {
		t.Fatal("key 2 should be resident")
	}
}

func TestAvgLFU_PutHitsDoNotAdvanceTotalFreq(t *testing.T) {
	t.Parallel()

	c := NewAvgLFU[int, string](2, 1, nil)
	c.Put(1, "a")
	c.Put(2, "b")

	for i := 0; i < 10; i++ {
		c.Put(1, "a-updated")
	}

	if c.totalFreq != 0 {
		t.Fatalf("totalFreq after Put-hits only = %d want 0 (onGet fires only on Get)", c.totalFreq)
	}
	if v, ok := c.Get(1); !ok || v != "a-updated" {
		t.Fatalf("get(1) = %v,%v want a-updated,true", v, ok)
	}
}

func TestAvgLFU_NewAvgLFUClampsMaxAvg(t *testing.T) {
	t.Parallel()

	c := NewAvgLFU[int, int](2, 0, nil)
	if c.maxAvg != 1 {
		t.Fatalf("maxAvg = %d want clamped to 1", c.maxAvg)
	}
}
