package sched

import "testing"

func TestRoundRobinFairness(t *testing.T) {
	rr := NewRoundRobin(2, 4)
	rr.Push(0)
	rr.Push(1)
	rr.Push(2)

	// FIFO order on equal admission.
	for _, want := range []Tid{0, 1, 2} {
		got, ok := rr.Pop()
		if !ok || got != want {
			t.Fatalf("Pop() = %d, %v; want %d, true", got, ok, want)
		}
		rr.Push(got) // simulate re-admission at the tail after a preemption
	}
}

func TestRoundRobinQuantumBoundary(t *testing.T) {
	rr := NewRoundRobin(2, 2)
	rr.Push(0)
	if _, ok := rr.Pop(); !ok {
		t.Fatal("Pop() = false, want true")
	}

	if exhausted := rr.Tick(); exhausted {
		t.Fatal("Tick() exhausted after 1 of 2 ticks")
	}
	if exhausted := rr.Tick(); !exhausted {
		t.Fatal("Tick() not exhausted after 2 of 2 ticks")
	}
}

func TestRoundRobinRefillOnlyWhenExhausted(t *testing.T) {
	rr := NewRoundRobin(3, 2)
	rr.Push(0)
	rr.Pop()
	rr.Tick() // quantum now 2, not exhausted

	rr.Push(0) // voluntary re-admission before exhaustion
	rr.Pop()
	if exhausted := rr.Tick(); exhausted {
		t.Fatal("Tick() exhausted after only 2 of original 3 ticks; re-admission must not refill early")
	}
}

func TestRoundRobinExitClearsCurrent(t *testing.T) {
	rr := NewRoundRobin(2, 2)
	rr.Push(0)
	rr.Pop()
	rr.Exit(0)

	if exhausted := rr.Tick(); !exhausted {
		t.Fatal("Tick() with no current thread must report exhausted")
	}
}

func TestRoundRobinTidReuse(t *testing.T) {
	rr := NewRoundRobin(2, 2)
	rr.Push(0)
	rr.Pop()
	rr.Exit(0)

	rr.Push(0) // tid 0 reused by a new thread
	got, ok := rr.Pop()
	if !ok || got != 0 {
		t.Fatalf("Pop() = %d, %v; want 0, true after tid reuse", got, ok)
	}
}

func TestRoundRobinPopEmpty(t *testing.T) {
	rr := NewRoundRobin(2, 2)
	if _, ok := rr.Pop(); ok {
		t.Fatal("Pop() on empty ready list returned ok=true")
	}
}
