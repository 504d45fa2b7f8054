package list

import "testing"

func TestList_EmptyInvariants(t *testing.T) {
	t.Parallel()

	l := New[string, int]()
	if !l.Empty() || l.Size() != 0 {
		t.Fatal("new list must be empty")
	}
	if l.Front() != nil || l.Back() != nil || l.PopFront() != nil {
		t.Fatal("empty list must report nil front/back/pop")
	}
}

func TestList_PushBackOrder(t *testing.T) {
	t.Parallel()

	l := New[string, int]()
	a := &Entry[string, int]{Key: "a", Value: 1}
	b := &Entry[string, int]{Key: "b", Value: 2}
	c := &Entry[string, int]{Key: "c", Value: 3}

	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	if l.Size() != 3 {
		t.Fatalf("size = %d, want 3", l.Size())
	}
	if l.Front() != a || l.Back() != c {
		t.Fatalf("front/back mismatch: front=%v back=%v", l.Front(), l.Back())
	}
}

func TestList_RemoveMiddle(t *testing.T) {
	t.Parallel()

	l := New[string, int]()
	a := &Entry[string, int]{Key: "a"}
	b := &Entry[string, int]{Key: "b"}
	c := &Entry[string, int]{Key: "c"}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.Remove(b)
	if l.Size() != 2 {
		t.Fatalf("size = %d, want 2", l.Size())
	}
	if l.Front() != a || l.Back() != c {
		t.Fatal("removing the middle entry must not disturb front/back")
	}
}

func TestList_MoveToBackAndFront(t *testing.T) {
	t.Parallel()

	l := New[string, int]()
	a := &Entry[string, int]{Key: "a"}
	b := &Entry[string, int]{Key: "b"}
	c := &Entry[string, int]{Key: "c"}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.MoveToBack(a)
	if l.Back() != a {
		t.Fatal("MoveToBack(a) must make a the tail")
	}
	l.MoveToFront(a)
	if l.Front() != a {
		t.Fatal("MoveToFront(a) must make a the head")
	}
	// Moving the entry that is already at the target end is a no-op.
	l.MoveToFront(a)
	if l.Front() != a || l.Size() != 3 {
		t.Fatal("redundant MoveToFront must not corrupt the list")
	}
}

func TestList_PopFrontDrainsInOrder(t *testing.T) {
	t.Parallel()

	l := New[string, int]()
	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		l.PushBack(&Entry[string, int]{Key: k})
	}

	for _, want := range keys {
		e := l.PopFront()
		if e == nil || e.Key != want {
			t.Fatalf("PopFront = %v, want %q", e, want)
		}
	}
	if !l.Empty() {
		t.Fatal("list must be empty after draining all entries")
	}
}
