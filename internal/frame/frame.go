// Package frame implements the physical frame allocator: a bitmap over a
// contiguous range of 4 KiB-aligned page numbers, guarded by a
// spinlock-style mutex because the critical section is a bounded linear
// bitmap scan.
package frame

import (
	"fmt"

	gsync "gvisor.dev/gvisor/pkg/sync"
)

// Index names a physical frame by its page number (address >> 12).
type Index uint64

// Allocator hands out and reclaims frame indices in [lo, hi). Double-free
// and double-allocate are programmer errors: behavior is unspecified and
// callers must not exercise them; Dealloc panics if asked to free a
// frame that isn't currently allocated, which is the cheapest way to make
// that contract violation loud instead of silently corrupting the bitmap.
type Allocator struct {
	mu  gsync.Mutex
	lo  Index
	hi  Index
	// allocated[i] is true iff frame lo+i is currently allocated.
	allocated []bool
	free      int
}

// New constructs an allocator over the half-open range [lo, hi); all
// frames in the range start free, mirroring init(l, r).
func New(lo, hi Index) *Allocator {
	if hi < lo {
		hi = lo
	}
	n := int(hi - lo)
	return &Allocator{
		lo:        lo,
		hi:        hi,
		allocated: make([]bool, n),
		free:      n,
	}
}

// Alloc returns the lowest-index free frame and marks it allocated, or
// false if the range is exhausted. Callers decide for themselves whether
// exhaustion is fatal; MustAlloc is the shortcut for the ones that have
// no recourse but to halt.
func (a *Allocator) Alloc() (Index, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, used := range a.allocated {
		if !used {
			a.allocated[i] = true
			a.free--
			return a.lo + Index(i), true
		}
	}
	return 0, false
}

// MustAlloc allocates a frame or panics, for callers (like kernel-stack
// acquisition) that have no recourse but to halt on exhaustion.
func (a *Allocator) MustAlloc() Index {
	idx, ok := a.Alloc()
	if !ok {
		panic(fmt.Sprintf("frame: out of frames (%d free of %d)", a.free, len(a.allocated)))
	}
	return idx
}

// Dealloc marks frame i free again.
func (a *Allocator) Dealloc(i Index) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i < a.lo || i >= a.hi {
		panic(fmt.Sprintf("frame: dealloc %d out of range [%d, %d)", i, a.lo, a.hi))
	}
	slot := int(i - a.lo)
	if !a.allocated[slot] {
		panic(fmt.Sprintf("frame: double free of frame %d", i))
	}
	a.allocated[slot] = false
	a.free++
}

// Free reports the number of currently-free frames, for diagnostics and
// for tests that verify exhaustion (S4).
func (a *Allocator) Free() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free
}
