// Package kstack implements the kernel-stack resource: a scoped
// acquisition of KSTACK_SIZE bytes of kernel heap, backed by the frame
// allocator, exclusively owned by one thread and released when that
// thread is destroyed.
package kstack

import "github.com/tinyrange/rv64kernel/internal/frame"

// Size is KSTACK_SIZE: two 4 KiB frames per kernel stack.
const Size = 2 * 4096

const framesPerStack = Size / 4096

// Stack is a kernel thread's private stack, or the sentinel "empty" stack
// (Addr() == 0) used only by the bootstrap context.
type Stack struct {
	alloc  *frame.Allocator
	frames []frame.Index
	addr   uint64
}

// Empty returns the sentinel empty kernel stack representing the
// bootstrap context. It must never be released.
func Empty() *Stack {
	return &Stack{}
}

// Acquire allocates a fresh kernel stack from alloc: the framesPerStack
// lowest free frames, with Addr() at the first of them. The frames are
// not guaranteed to be contiguous, and the region is not aligned to
// Size. Panics (via the allocator) if frames are exhausted: callers that
// cannot continue may halt.
func Acquire(alloc *frame.Allocator) *Stack {
	frames := make([]frame.Index, framesPerStack)
	for i := range frames {
		frames[i] = alloc.MustAlloc()
	}
	return &Stack{
		alloc:  alloc,
		frames: frames,
		addr:   uint64(frames[0]) * 4096,
	}
}

// Addr returns the conceptual base address of the stack region, or 0 for
// the sentinel empty stack.
func (s *Stack) Addr() uint64 {
	return s.addr
}

// Top returns the address one past the end of the stack — where a fresh
// context's synthetic stack frame is placed.
func (s *Stack) Top() uint64 {
	if s.alloc == nil {
		return 0
	}
	return s.addr + Size
}

// Release frees the stack's frames back to the allocator. Releasing the
// sentinel empty stack is a no-op: it was never allocated and must not
// be freed.
func (s *Stack) Release() {
	if s.alloc == nil {
		return
	}
	for _, f := range s.frames {
		s.alloc.Dealloc(f)
	}
	s.frames = nil
}
