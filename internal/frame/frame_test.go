package frame

import "testing"

// TestExhaustionAndReuse covers S4: alloc succeeds exactly M times then
// fails, and freeing the most recently allocated frame makes it the next
// one returned.
func TestExhaustionAndReuse(t *testing.T) {
	const l, r = 10, 15 // M = 5
	a := New(l, r)

	var got []Index
	for i := 0; i < 5; i++ {
		idx, ok := a.Alloc()
		if !ok {
			t.Fatalf("alloc %d: expected success", i)
		}
		got = append(got, idx)
	}

	if _, ok := a.Alloc(); ok {
		t.Fatalf("expected allocator to be exhausted")
	}

	last := got[len(got)-1]
	a.Dealloc(last)

	next, ok := a.Alloc()
	if !ok || next != last {
		t.Fatalf("expected reallocating to return %d, got %d ok=%v", last, next, ok)
	}
}

func TestAllocOrderIsLowestIndexFirst(t *testing.T) {
	a := New(0, 3)
	for want := Index(0); want < 3; want++ {
		got, ok := a.Alloc()
		if !ok || got != want {
			t.Fatalf("expected %d, got %d ok=%v", want, got, ok)
		}
	}
}

func TestDoubleFreePanics(t *testing.T) {
	a := New(0, 1)
	idx, _ := a.Alloc()
	a.Dealloc(idx)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected double free to panic")
		}
	}()
	a.Dealloc(idx)
}
