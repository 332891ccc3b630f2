// Package proc implements the per-hart processor/dispatcher: the idle
// loop, switch-based dispatch, and the exit path.
//
// A real timer interrupt can land on literally any instruction of
// whatever thread is running. Go offers no safe, portable way to hijack
// an arbitrary goroutine mid-instruction, so this simulator relies on
// the one mechanism Go does give us for cooperative preemption: the
// running thread calls Checkpoint() at its own chosen points (once per
// unit of simulated work), and that is the only place a tick-driven
// preemption actually takes effect. Suspension only ever happens inside
// a call to Switch — Checkpoint's only side effect, when it decides to
// preempt, is to call it.
package proc

import (
	"context"
	"runtime"

	gsync "gvisor.dev/gvisor/pkg/sync"

	"github.com/tinyrange/rv64kernel/internal/klog"
	"github.com/tinyrange/rv64kernel/internal/pool"
	"github.com/tinyrange/rv64kernel/internal/sched"
	"github.com/tinyrange/rv64kernel/internal/tcontext"
	"github.com/tinyrange/rv64kernel/internal/timer"
)

// Processor is the scoped-lifetime, process-wide dispatcher singleton.
// It must be initialized exactly once; the single-hart invariant is
// enforced by pinning the Go scheduler to one OS thread (GOMAXPROCS(1))
// so that, just as on real single-hart hardware, at most one goroutine's
// Go code is ever actually executing at a time.
type Processor struct {
	pool  *pool.Pool
	timer *timer.Timer
	log   *klog.Logger

	idle *tcontext.Thread

	mu           gsync.Mutex
	current      *tcontext.Thread
	currentTid   sched.Tid
	hasCurrent   bool
	pendingTicks uint64

	wake chan struct{}
}

// New constructs a processor over pool and timer. SetIdle must be called
// before Run.
func New(p *pool.Pool, t *timer.Timer, log *klog.Logger) *Processor {
	// Single hart, cooperative-plus-preemptive. Pinning to one OS thread
	// is this simulator's rendering of that invariant: it is what makes
	// the goroutine baton-pass in tcontext a true context switch rather
	// than two goroutines racing.
	runtime.GOMAXPROCS(1)

	if log == nil {
		log = klog.Default
	}
	return &Processor{
		pool:  p,
		timer: t,
		log:   log,
		wake:  make(chan struct{}, 1),
	}
}

// SetIdle registers the idle thread constructed at init. The idle
// thread's entry should call proc.IdleMain via a closure capturing proc,
// the Go analogue of passing the processor's address as an initial
// argument to its entry point.
func (p *Processor) SetIdle(idle *tcontext.Thread) {
	p.idle = idle
}

// IdleMain is the idle thread's entry point. Construct the idle thread
// as tcontext.NewKernel(stack, func(args [3]uint64) { proc.IdleMain() }).
func (p *Processor) IdleMain() {
	for {
		tid, body, ok := p.pool.Acquire()
		if ok {
			p.setCurrent(tid, body)
			tcontext.Switch(p.idle, body)
			// Resumes here either because the thread was preempted
			// (Checkpoint -> Switch back to idle) or because it exited
			// (SwitchAndExit). Either way take current back out and let
			// the pool decide whether to park or discard the body.
			curTid, curBody := p.takeCurrent()
			if alive := p.pool.Retrieve(curTid, curBody); !alive {
				curBody.Stack.Release()
			}
			continue
		}
		p.wfi()
	}
}

// wfi simulates "enable interrupts, wait for interrupt, disable
// interrupts": block until the next tick, then re-check for runnable
// work.
func (p *Processor) wfi() {
	<-p.wake
}

func (p *Processor) setCurrent(tid sched.Tid, body *tcontext.Thread) {
	p.mu.Lock()
	p.current = body
	p.currentTid = tid
	p.hasCurrent = true
	p.pendingTicks = 0
	p.mu.Unlock()
}

func (p *Processor) takeCurrent() (sched.Tid, *tcontext.Thread) {
	p.mu.Lock()
	tid, body := p.currentTid, p.current
	p.current = nil
	p.hasCurrent = false
	p.mu.Unlock()
	return tid, body
}

// OnTimerTick is the simulator's trap vector entry for a supervisor
// timer interrupt: reprogram the deadline (implicit — Advance models
// "next deadline" as "next tick"), bump the counter, and make the tick
// observable to whichever thread is current.
func (p *Processor) OnTimerTick() {
	p.timer.Advance()

	p.mu.Lock()
	p.pendingTicks++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Checkpoint is called by the currently-running kernel thread at points
// of its own choosing (once per unit of simulated work). It is the only
// place, besides Exit, where a running thread can be switched out — the
// Go-native substitute for an asynchronous timer trap landing mid-
// instruction. If the accumulated ticks exhaust the thread's quantum,
// Checkpoint switches into the idle thread and does not return until this
// thread is dispatched again.
func (p *Processor) Checkpoint() {
	for {
		p.mu.Lock()
		if p.pendingTicks == 0 {
			p.mu.Unlock()
			return
		}
		p.pendingTicks--
		self := p.current
		p.mu.Unlock()

		exhausted := p.pool.Tick()
		if exhausted {
			tcontext.Switch(self, p.idle)
			// Resumed: idle re-dispatched us. Loop to drain any ticks
			// that accumulated while we were off the hart.
			continue
		}
	}
}

// Exit implements exit(code): acknowledge termination to the
// pool/scheduler and switch into idle. This call never returns.
func (p *Processor) Exit(code int) {
	p.mu.Lock()
	tid := p.currentTid
	p.mu.Unlock()

	p.pool.Exit(tid, code)
	tcontext.SwitchAndExit(p.idle)
	runtime.Goexit()
}

// Run is the bootstrap: switch from the implicit boot context into
// idle. Control never returns to the caller in a real boot; this hosted
// simulator accepts a context so tests can stop it, but a production
// binary should pass context.Background() and expect Run to block
// forever.
func (p *Processor) Run(ctx context.Context) error {
	if p.idle == nil {
		panic("proc: SetIdle must be called before Run")
	}
	tcontext.SwitchFromBoot(p.idle)
	<-ctx.Done()
	return ctx.Err()
}
