package engine

import "testing"

// Capacity 2, put(1,a); put(2,b); get(1); get(1); put(3,c).
// Key 1 reaches frequency 3, key 2 stays at frequency 1, so key 2 is
// evicted when key 3 is inserted.
func TestLFU_BucketEviction(t *testing.T) {
	t.Parallel()

	c := NewLFU[int, string](2, nil)
	c.Put(1, "a")
	c.Put(2, "b")
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Fatalf("get(1) = %v,%v want a,true", v, ok)
	}
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Fatalf("get(1) = %v,%v want a,true", v, ok)
	}
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

func TestLFU_MinFreqInvariant(t *testing.T) {
	t.Parallel()

	c := NewLFU[int, int](3, nil)
	assertMin := func(want int) {
		t.Helper()
		if got := c.MinFreq(); got != want {
			t.Fatalf("MinFreq() = %d want %d", got, want)
		}
	}

	assertMin(0)
	c.Put(1, 1)
	assertMin(1)
	c.Put(2, 2)
	c.Put(3, 3)
	assertMin(1)

	c.Get(1)
	c.Get(2)
	c.Get(3)
	assertMin(2)

	c.Get(1)
	assertMin(2) // 2 and 3 still at freq 2

	c.Remove(2)
	c.Remove(3)
	assertMin(3) // only key 1 left, at freq 3

	c.Remove(1)
	assertMin(0)
}

func TestLFU_SizeNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	c := NewLFU[int, int](4, nil)
	for i := 0; i < 50; i++ {
		c.Put(i, i)
		if c.Len() > c.Cap() {
			t.Fatalf("size %d exceeds capacity %d after put(%d)", c.Len(), c.Cap(), i)
		}
	}
}

func TestLFU_RemoveAndContains(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](4, nil)
	c.Put("a", 1)
	if !c.Contains("a") {
		t.Fatal("expected a to be present")
	}
	if !c.Remove("a") {
		t.Fatal("Remove(a) should report true")
	}
	if c.Remove("a") {
		t.Fatal("Remove(a) twice should report false")
	}
}

func TestLFU_MissReturnsZeroValue(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](2, nil)
	v, ok := c.Get("missing")
	if ok || v != 0 {
		t.Fatalf("get(missing) = %v,%v want 0,false", v, ok)
	}
}

func TestLFU_UpdateExistingKeyPromotesFrequency(t *testing.T) {
	t.Parallel()

	c := NewLFU[string, int](2, nil)
	c.Put("a", 1)
	c.Put("a", 2) // update, not a fresh insert: freq should now be 2
	if e := c.freqLists[2].Front(); e == nil || e.Key != "a" {
		t.Fatal("expected a to have been promoted to the freq-2 bucket on update")
	}
}
