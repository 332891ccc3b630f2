// Package trap implements trap classification: the handler a real
// __alltraps would dispatch into after saving a trapframe.StackFrame.
package trap

import (
	"github.com/tinyrange/rv64kernel/internal/klog"
	"github.com/tinyrange/rv64kernel/internal/trapframe"
)

// breakpointAdvance is the width, in bytes, by which sepc must be moved
// past an ebreak so that re-entering the thread does not re-trap on the
// same instruction.
const breakpointAdvance = 2

// OnTimer is invoked when a trap's cause is the supervisor timer
// interrupt. The processor supplies its own tick-accounting entry point
// here rather than Handler reaching into proc directly, keeping trap
// free of a dependency on proc (proc already depends on pool/sched/
// tcontext/timer).
type OnTimer func()

// Handler classifies a trapped frame by inspecting scause and
// dispatching accordingly. It owns no state of its own beyond the
// logger and the timer callback.
type Handler struct {
	log     *klog.Logger
	onTimer OnTimer
}

// New constructs a trap handler. onTimer is called once per supervisor
// timer interrupt; it is typically (*proc.Processor).OnTimerTick.
func New(log *klog.Logger, onTimer OnTimer) *Handler {
	if log == nil {
		log = klog.Default
	}
	return &Handler{log: log, onTimer: onTimer}
}

// Dispatch classifies frame.Scause and acts on it:
//
//   - Breakpoint: log and advance sepc past the ebreak, then return
//     normally (the trapped thread resumes).
//   - Supervisor timer interrupt: invoke onTimer and return normally.
//   - Any page fault: fatal — there is no demand paging, so a page
//     fault is a kernel bug.
//   - Anything else: fatal, for the same reason.
func (h *Handler) Dispatch(frame *trapframe.StackFrame) {
	if trapframe.IsInterrupt(frame.Scause) {
		switch frame.Scause {
		case trapframe.CauseSTimerInt:
			if h.onTimer != nil {
				h.onTimer()
			}
		default:
			h.log.Panicf("trap: unhandled interrupt cause=0x%x sepc=0x%x", frame.Scause, frame.Sepc)
		}
		return
	}

	switch frame.Scause {
	case trapframe.CauseBreakpoint:
		h.log.Infof("trap: breakpoint at sepc=0x%x", frame.Sepc)
		frame.Sepc += breakpointAdvance
	case trapframe.CauseInsnPageFault,
		trapframe.CauseLoadPageFault,
		trapframe.CauseStorePageFault:
		h.log.Panicf("trap: unhandled page fault cause=0x%x stval=0x%x sepc=0x%x",
			frame.Scause, frame.Stval, frame.Sepc)
	default:
		h.log.Panicf("trap: unhandled exception cause=0x%x stval=0x%x sepc=0x%x",
			frame.Scause, frame.Stval, frame.Sepc)
	}
}
