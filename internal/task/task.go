// Package task holds the suspension contract shared by poll-driven
// components: a poll either completes, fails, or returns ErrPending after
// registering a Waker that fires when retrying can make progress.
package task

import "errors"

// ErrPending reports that a poll could not complete yet. The caller should
// poll again after the registered Waker fires.
var ErrPending = errors.New("task: pending")

// Waker is notified when a suspended poll may make progress.
// Wake must be safe to call from any goroutine and must not block.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Signal is a coalescing Waker backed by a one-slot channel.
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Wake marks the signal ready. Wakes that arrive before the previous one was
// consumed collapse into one.
func (s *Signal) Wake() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C returns the channel that receives after Wake.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// Nop is a Waker that ignores wakes, for callers that re-poll on their own
// schedule.
var Nop Waker = WakerFunc(func() {})
