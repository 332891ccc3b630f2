// Package timer implements the timer subsystem: a tick counter advanced
// by the (simulated) supervisor timer interrupt, plus a periodic
// "* N ticks *" banner.
package timer

import (
	gsync "gvisor.dev/gvisor/pkg/sync"

	"github.com/tinyrange/rv64kernel/internal/klog"
)

// Timer tracks the tick counter. The real subsystem programs the next
// deadline via SBI set_timer(now+TIMEBASE); this simulator keeps no
// deadline at all, since it has no real clock to read and does not
// implement SBI: each Advance call stands for one deadline firing.
type Timer struct {
	mu          gsync.Mutex
	log         *klog.Logger
	timebase    uint64
	ticks       uint64
	bannerEvery uint64
}

// New constructs a timer that logs a banner every bannerEvery ticks (a
// stock boot uses 100). timebase is recorded for diagnostics only; the
// simulator advances one tick per Advance() call regardless of it.
func New(log *klog.Logger, timebase, bannerEvery uint64) *Timer {
	if log == nil {
		log = klog.Default
	}
	if bannerEvery == 0 {
		bannerEvery = 100
	}
	return &Timer{log: log, timebase: timebase, bannerEvery: bannerEvery}
}

// Advance increments the tick counter by one, the simulator's stand-in
// for "reprogram next deadline, increment tick counter". It returns the
// new tick count.
func (t *Timer) Advance() uint64 {
	t.mu.Lock()
	ticks := t.ticks + 1
	t.ticks = ticks
	banner := t.bannerEvery != 0 && ticks%t.bannerEvery == 0
	t.mu.Unlock()

	if banner {
		t.log.Infof("* %d ticks *", ticks)
	}
	return ticks
}

// Ticks returns the current tick count.
func (t *Timer) Ticks() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// Timebase returns the configured TIMEBASE cycle count.
func (t *Timer) Timebase() uint64 {
	return t.timebase
}
