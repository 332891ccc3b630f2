// Package pool implements the thread pool: a fixed capacity vector of
// slots, each either empty or holding a task's status and (when not
// currently dispatched) its parked thread body.
package pool

import (
	gsync "gvisor.dev/gvisor/pkg/sync"

	"github.com/tinyrange/rv64kernel/internal/sched"
	"github.com/tinyrange/rv64kernel/internal/tcontext"
)

// Status is one of a task's lifecycle states.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusSleeping
	StatusExited
)

type slot struct {
	occupied bool
	status   Status
	thread   *tcontext.Thread // nil while acquired by the dispatcher
	exitCode int
}

// Pool owns thread bodies keyed by tid and tracks their lifecycle; it
// defers all ordering decisions to a Scheduler.
type Pool struct {
	mu    gsync.Mutex
	sched sched.Scheduler
	slots []slot
}

// New constructs a pool of the given fixed capacity backed by sched.
func New(scheduler sched.Scheduler, capacity int) *Pool {
	return &Pool{
		sched: scheduler,
		slots: make([]slot, capacity),
	}
}

// Add installs thread in the first empty slot, admits it to the
// scheduler, and returns its tid. Panics if capacity is exhausted —
// capacity is a configuration decision made by the caller.
func (p *Pool) Add(thread *tcontext.Thread) sched.Tid {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if !p.slots[i].occupied {
			p.slots[i] = slot{occupied: true, status: StatusReady, thread: thread}
			tid := sched.Tid(i)
			p.sched.Push(tid)
			return tid
		}
	}
	panic("pool: thread pool capacity exhausted")
}

// Acquire asks the scheduler for the next runnable tid; if one is
// returned, the parked thread body is moved out of its slot and the slot
// is marked Running.
func (p *Pool) Acquire() (sched.Tid, *tcontext.Thread, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tid, ok := p.sched.Pop()
	if !ok {
		return 0, nil, false
	}
	s := &p.slots[tid]
	body := s.thread
	s.thread = nil
	s.status = StatusRunning
	return tid, body, true
}

// Retrieve is called by the dispatcher after a running thread has been
// switched out. It reports false when the slot has reached StatusExited
// (the thread called Exit while it was running) — the caller
// (proc.Processor.IdleMain) must then release the body's kernel stack,
// since nothing else owns it anymore. The thread's own stack is still
// technically "in use" for the switch that is unwinding at this very
// call, but the dispatcher has already stepped onto its own stack by
// the time Retrieve runs, so releasing it here is safe.
func (p *Pool) Retrieve(tid sched.Tid, thread *tcontext.Thread) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[tid]
	if !s.occupied {
		return false
	}
	switch s.status {
	case StatusRunning:
		s.thread = thread
		s.status = StatusReady
		p.sched.Push(tid)
	case StatusSleeping:
		s.thread = thread
	case StatusExited:
		*s = slot{} // free the tid for reuse now that nothing references it
		return false
	}
	return true
}

// Tick forwards to the scheduler.
func (p *Pool) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched.Tick()
}

// Exit marks tid's slot StatusExited, records its exit code, and
// acknowledges termination to the scheduler. The slot itself is freed
// for reuse only once the dispatcher calls Retrieve — until then,
// StatusOf and ExitCodeOf can still observe the terminated thread.
func (p *Pool) Exit(tid sched.Tid, code int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[tid]
	s.status = StatusExited
	s.exitCode = code
	p.sched.Exit(tid)
}

// StatusOf reports the slot's status and whether it is occupied at all,
// for diagnostics and tests (e.g. verifying a tid never reappears after
// exit).
func (p *Pool) StatusOf(tid sched.Tid) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.slots[tid]
	return s.status, s.occupied
}

// ExitCodeOf reports the exit code a terminated thread passed to Exit.
// Only meaningful while the slot is still StatusExited, i.e. before the
// dispatcher's next Retrieve call frees it for reuse.
func (p *Pool) ExitCodeOf(tid sched.Tid) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[tid].exitCode
}
