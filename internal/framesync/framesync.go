// Package framesync hands one frame at a time from the render loop to the
// platform's drawable-acquisition code. The producer side resolves exactly
// once, whether it completes, cancels, or is simply dropped, so the waiting
// side can never hang on a lost frame.
package framesync

import (
	"sync"
	"time"
)

// FrameStatus is the three-way outcome of a frame wait. Timeout and
// Cancelled are expected, frequent outcomes of real-time rendering, not
// errors.
type FrameStatus uint8

const (
	// Ready means the frame was resolved before or during the wait.
	Ready FrameStatus = iota
	// Timeout means the wait elapsed before the frame resolved.
	Timeout
	// Cancelled means no request was outstanding for the waiter slot.
	Cancelled
)

func (s FrameStatus) String() string {
	switch s {
	case Ready:
		return "ready"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// cell is the state shared between a request and its waiter. The channel
// is closed exactly once under the Once, whichever resolution path runs
// first.
type cell struct {
	once sync.Once
	done chan struct{}
}

func newCell() *cell {
	return &cell{done: make(chan struct{})}
}

func (c *cell) resolve() {
	c.once.Do(func() { close(c.done) })
}

// FrameRequest is the producer half of one frame handoff. It resolves at
// most once; Complete and Cancel after the first resolution are no-ops.
type FrameRequest struct {
	id   uint64
	cell *cell
}

// FrameID returns the frame this request was issued for.
func (r *FrameRequest) FrameID() uint64 { return r.id }

// Complete marks the frame's drawable as ready and wakes the waiter.
func (r *FrameRequest) Complete() { r.cell.resolve() }

// Cancel abandons the frame. The waiter still wakes; dropping a request
// is always safe, never a hang.
func (r *FrameRequest) Cancel() { r.cell.resolve() }

// FrameSync owns at most one outstanding waiter slot. Complete is expected
// to be called from a different goroutine than WaitForFrame; FrameSync
// itself is safe for concurrent use.
type FrameSync struct {
	mu        sync.Mutex
	waiter    *cell
	nextFrame uint64
}

// New returns a FrameSync with no outstanding request.
func New() *FrameSync {
	return &FrameSync{}
}

// RequestFrame issues a producer handle for the next frame and installs
// its waiter half. Any prior unwaited request is resolved and replaced so
// a stale frame can never strand a waiter.
func (s *FrameSync) RequestFrame() *FrameRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waiter != nil {
		s.waiter.resolve()
	}
	c := newCell()
	s.waiter = c
	id := s.nextFrame
	s.nextFrame++
	return &FrameRequest{id: id, cell: c}
}

// WaitForFrame blocks until the outstanding request resolves or the
// timeout elapses. With no outstanding request it returns Cancelled
// immediately. Ready consumes the waiter slot.
func (s *FrameSync) WaitForFrame(timeout time.Duration) FrameStatus {
	s.mu.Lock()
	c := s.waiter
	s.mu.Unlock()

	if c == nil {
		return Cancelled
	}

	select {
	case <-c.done:
		s.consume(c)
		return Ready
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		s.consume(c)
		return Ready
	case <-timer.C:
		return Timeout
	}
}

func (s *FrameSync) consume(c *cell) {
	s.mu.Lock()
	if s.waiter == c {
		s.waiter = nil
	}
	s.mu.Unlock()
}
