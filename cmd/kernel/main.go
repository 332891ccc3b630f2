// Command kernel boots the hosted rv64kernel simulator: it wires up the
// frame allocator, the round-robin scheduler and thread pool, the trap
// handler, and the processor, then admits a handful of demo kernel
// threads: some short-lived, one long-running and subject to repeated
// preemption.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tinyrange/rv64kernel/internal/bootcfg"
	"github.com/tinyrange/rv64kernel/internal/frame"
	"github.com/tinyrange/rv64kernel/internal/klog"
	"github.com/tinyrange/rv64kernel/internal/kstack"
	"github.com/tinyrange/rv64kernel/internal/memlayout"
	"github.com/tinyrange/rv64kernel/internal/pool"
	"github.com/tinyrange/rv64kernel/internal/proc"
	"github.com/tinyrange/rv64kernel/internal/sched"
	"github.com/tinyrange/rv64kernel/internal/tcontext"
	"github.com/tinyrange/rv64kernel/internal/timer"
	"github.com/tinyrange/rv64kernel/internal/trap"
	"github.com/tinyrange/rv64kernel/internal/trapframe"
)

// endOfKernelImage stands in for the linker-provided `end` symbol: there
// is no real kernel image here, so this is just some address past
// memlayout.KernelBeginVaddr large enough to leave room for a handful of
// simulated kernel stacks after it.
const endOfKernelImage = memlayout.KernelBeginVaddr + 16*1024*1024

// tickInterval is how often the simulated clock fires a supervisor timer
// interrupt. Real hardware is driven by TIMEBASE cycles; this hosted
// simulator has no cycle counter to read, so a wall-clock interval stands
// in for it, scaled down so a demo boot plays out in human time.
const tickInterval = 20 * time.Millisecond

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "optional YAML boot configuration file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	cfg, err := bootcfg.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel: %v\n", err)
		os.Exit(1)
	}

	log := klog.Default

	alloc := frame.New(
		frame.Index(memlayout.FirstAllocatablePPN(endOfKernelImage)),
		frame.Index(memlayout.PhysicalMemoryEndPPN()),
	)

	scheduler := sched.NewRoundRobin(cfg.MaxTimeTicks, cfg.PoolCapacity)
	threadPool := pool.New(scheduler, cfg.PoolCapacity)
	clock := timer.New(log, cfg.TimebaseCycles, 100)

	p := proc.New(threadPool, clock, log)

	idle := tcontext.NewKernel(kstack.Acquire(alloc), func(_ [3]uint64) {
		p.IdleMain()
	})
	p.SetIdle(idle)

	handler := trap.New(log, p.OnTimerTick)

	// S1: short-lived threads that print begin/running/end and exit(0).
	for i := 0; i < cfg.Threads; i++ {
		i := i
		entry := func(_ [3]uint64) {
			log.Infof("thread %d: begin", i)
			for step := 0; step < 3; step++ {
				log.Infof("thread %d: running (step %d)", i, step)
				p.Checkpoint()
			}
			log.Infof("thread %d: end", i)
			p.Exit(0)
		}
		threadPool.Add(tcontext.NewKernel(kstack.Acquire(alloc), entry))
	}

	// S2: one long-running thread that never exits on its own, to exercise
	// repeated quantum-boundary preemption.
	longRunning := func(_ [3]uint64) {
		n := 0
		for {
			n++
			if n%50 == 0 {
				log.Infof("long-running thread: %d iterations", n)
			}
			p.Checkpoint()
		}
	}
	threadPool.Add(tcontext.NewKernel(kstack.Acquire(alloc), longRunning))

	// Simulated clock: fires a supervisor timer interrupt trap at a fixed
	// wall-clock interval, the hosted stand-in for counting TIMEBASE cycles.
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for range ticker.C {
			frame := trapframe.StackFrame{Scause: trapframe.CauseSTimerInt}
			handler.Dispatch(&frame)
		}
	}()

	log.Infof("kernel: booting with %d demo threads, quantum=%d ticks", cfg.Threads, cfg.MaxTimeTicks)
	if err := p.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "kernel: %v\n", err)
		os.Exit(1)
	}
}
