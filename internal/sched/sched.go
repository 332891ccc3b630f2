// Package sched implements the pluggable scheduler contract and its
// round-robin variant. Thread ids are small non-negative integers; the
// scheduler never touches thread bodies, only tids and its own
// bookkeeping.
package sched

// Tid is a thread-pool slot index.
type Tid int

// Scheduler orders runnable tids. Implementations need not be goroutine
// safe on their own; callers (the thread pool) serialize access under the
// single-hart discipline.
type Scheduler interface {
	// Push admits or re-admits tid to the ready set.
	Push(tid Tid)
	// Pop removes and returns the head of the ready list, or false if
	// the ready set is empty.
	Pop() (Tid, bool)
	// Tick decrements the current thread's quantum by one tick and
	// reports whether it has reached zero (caller should preempt).
	// Returns true if there is no current thread.
	Tick() bool
	// Exit acknowledges that tid has terminated.
	Exit(tid Tid)
}

// entry is one slot of the intrusive doubly-linked ready list. Index 0 is
// the sentinel head; a real tid t is stored at index t+1, keeping the
// list self-contained in a flat slice rather than a pointer graph.
type entry struct {
	valid bool
	time  uint64
	prev  int
	next  int
}

// RoundRobin is the fixed-quantum round-robin scheduler.
type RoundRobin struct {
	maxTime uint64
	entries []entry
	current Tid // the tid itself, not its slot index; valid only if hasCur
	hasCur  bool
}

// NewRoundRobin constructs a round-robin scheduler with the given
// per-admission quantum, sized to hold up to capacity tids.
func NewRoundRobin(maxTime uint64, capacity int) *RoundRobin {
	rr := &RoundRobin{
		maxTime: maxTime,
		entries: make([]entry, capacity+1),
	}
	rr.entries[0] = entry{valid: true, prev: 0, next: 0}
	return rr
}

func (rr *RoundRobin) slot(tid Tid) int {
	i := int(tid) + 1
	for i >= len(rr.entries) {
		rr.entries = append(rr.entries, entry{})
	}
	return i
}

func (rr *RoundRobin) linkBefore(at, node int) {
	prev := rr.entries[at].prev
	rr.entries[node].prev = prev
	rr.entries[node].next = at
	rr.entries[prev].next = node
	rr.entries[at].prev = node
}

func (rr *RoundRobin) unlink(node int) {
	e := rr.entries[node]
	rr.entries[e.prev].next = e.next
	rr.entries[e.next].prev = e.prev
}

// Push admits tid at the tail of the ready list. First admission
// initializes the quantum to maxTime; a re-admission only refills the
// quantum if it has already reached zero — this is intentional, and
// preserves whatever time a thread had left across a voluntary
// re-admission.
func (rr *RoundRobin) Push(tid Tid) {
	i := rr.slot(tid)
	e := &rr.entries[i]
	if !e.valid {
		e.valid = true
		e.time = rr.maxTime
	} else if e.time == 0 {
		e.time = rr.maxTime
	}
	rr.linkBefore(0, i)
}

// Pop removes and returns the head of the ready list (FIFO tie-break)
// and records it as current.
func (rr *RoundRobin) Pop() (Tid, bool) {
	head := rr.entries[0].next
	if head == 0 {
		rr.hasCur = false
		return 0, false
	}
	rr.unlink(head)
	rr.entries[head].next = 0
	rr.entries[head].prev = 0
	tid := Tid(head - 1)
	rr.current = tid
	rr.hasCur = true
	return tid, true
}

// Tick decrements the current thread's quantum and reports exhaustion.
func (rr *RoundRobin) Tick() bool {
	if !rr.hasCur {
		return true
	}
	i := rr.slot(rr.current)
	e := &rr.entries[i]
	if e.time > 0 {
		e.time--
	}
	return e.time == 0
}

// Exit acknowledges tid's termination, clearing current if it matches.
func (rr *RoundRobin) Exit(tid Tid) {
	if rr.hasCur && rr.current == tid {
		rr.hasCur = false
	}
	i := rr.slot(tid)
	rr.entries[i].valid = false
	rr.entries[i].time = 0
}

var _ Scheduler = (*RoundRobin)(nil)
