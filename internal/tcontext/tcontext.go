// Package tcontext implements the context-switch primitive: the context
// content/handle pair and switch(from, to). Go gives no portable way to
// hand-write a leaf assembly routine that swaps kernel-stack pointers
// and resumes a saved return address, so this hosted simulator expresses
// the same contract as an explicit baton hand-off between goroutines: a
// parked goroutine, blocked on a channel receive, *is* a saved
// continuation — the Go runtime preserves exactly the state a hand-
// written switch routine would have saved by hand.
package tcontext

import (
	"reflect"

	"github.com/tinyrange/rv64kernel/internal/kstack"
	"github.com/tinyrange/rv64kernel/internal/trapframe"
)

// Entry is a kernel thread body. It is the Go analogue of a function
// pointer resumed via __trapret with three argument-register values.
type Entry func(args [3]uint64)

// Thread is the owning pair of (context handle, kernel stack): an
// allocated Stack plus whatever is needed to resume execution where it
// last called Switch.
type Thread struct {
	Stack *kstack.Stack
	// Frame is the synthetic first-entry stack frame; switches do not
	// update it. It is kept for ABI fidelity with the real trap-return
	// path even though this simulator never actually unwinds through it.
	Frame trapframe.StackFrame
	Args  [3]uint64

	entry     Entry
	resume    chan struct{}
	started   bool
	bootstrap bool
}

// NewKernel allocates nothing (the caller supplies stack) and builds a
// fresh context whose first resume invokes entry in the Go analogue of
// S-mode with the shared kernel page table: Previous-Privilege =
// Supervisor, Previous-Interrupts-Enabled = true.
func NewKernel(stack *kstack.Stack, entry Entry) *Thread {
	t := &Thread{
		Stack:  stack,
		entry:  entry,
		resume: make(chan struct{}, 1),
	}
	t.Frame.X[2] = stack.Top() // sp
	t.Frame.Sepc = uint64(reflect.ValueOf(entry).Pointer())
	t.Frame.Sstatus = trapframe.SstatusSPP | trapframe.SstatusSPIE
	return t
}

// GetBootThread returns the sentinel bootstrap context: a null handle
// (no resume channel is ever used) paired with the sentinel empty kernel
// stack. It is never switched into. Processor.Run does not use it:
// SwitchFromBoot treats the calling goroutine itself as the bootstrap
// context.
func GetBootThread() *Thread {
	return &Thread{Stack: kstack.Empty(), bootstrap: true}
}

// AppendInitialArguments writes three initial argument values into the
// synthetic stack frame's argument-register slots, taking effect on the
// thread's first entry.
func (t *Thread) AppendInitialArguments(a0, a1, a2 uint64) {
	t.Args = [3]uint64{a0, a1, a2}
	t.Frame.X[trapframe.RegA0] = a0
	t.Frame.X[trapframe.RegA1] = a1
	t.Frame.X[trapframe.RegA2] = a2
}

// spawnIfNeeded starts the thread's backing goroutine the first time it
// is ever switched into. The goroutine blocks immediately on its own
// resume channel — exactly mirroring a freshly-constructed context
// sitting untouched until the first switch_to reads it.
func (t *Thread) spawnIfNeeded() {
	if t.started {
		return
	}
	t.started = true
	go func() {
		<-t.resume
		if t.entry != nil {
			t.entry(t.Args)
		}
	}()
}

// Switch implements switch(from, to): wakes to (spawning its goroutine
// on first use) and parks the caller (from) until something switches
// back into it. from must not be the bootstrap thread (the bootstrap
// context is discarded on its one legitimate use; see SwitchFromBoot).
func Switch(from, to *Thread) {
	to.spawnIfNeeded()
	to.resume <- struct{}{}
	<-from.resume
}

// SwitchAndExit implements the exit path: it wakes to exactly like
// Switch, but the caller (from) is a thread that is terminating and
// must never be resumed again, so it does not park — the calling
// goroutine simply returns afterward, which is this simulator's
// rendering of "this call never returns".
func SwitchAndExit(to *Thread) {
	to.spawnIfNeeded()
	to.resume <- struct{}{}
}

// SwitchFromBoot implements Run's one-time bootstrap switch: the boot
// thread has no goroutine of its own (the calling goroutine *is* the
// bootstrap context), so after waking to, the caller is responsible for
// blocking by whatever mechanism it chooses (Run blocks on a context).
func SwitchFromBoot(to *Thread) {
	to.spawnIfNeeded()
	to.resume <- struct{}{}
}
