// Package notify holds the single-slot waiter used to wake a suspended poll
// and the outbound byte buffer built on it.
package notify

import (
	"sync"

	"github.com/danmuck/framesink/internal/bytebuf"
	"github.com/danmuck/framesink/internal/task"
)

// Slot retains at most one waiter. Registering replaces the previous waiter;
// Notify wakes the current one and clears the slot. It is not a broadcast:
// a suspended poller must register again every time it suspends.
type Slot struct {
	mu     sync.Mutex
	waiter task.Waker
}

func (s *Slot) Register(w task.Waker) {
	s.mu.Lock()
	s.waiter = w
	s.mu.Unlock()
}

// Notify wakes the registered waiter, if any, exactly once.
func (s *Slot) Notify() {
	s.mu.Lock()
	w := s.waiter
	s.waiter = nil
	s.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

// Buffer is a byte queue whose appends wake the registered waiter.
// It is owned by a single sink and is not safe for concurrent mutation.
type Buffer struct {
	q    bytebuf.Queue
	slot Slot
}

// Append adds parts to the tail in order and wakes the registered waiter
// once.
func (b *Buffer) Append(parts ...[]byte) {
	for _, p := range parts {
		b.q.Append(p)
	}
	b.slot.Notify()
}

// RemoveRange drops bytes in [start, end), typically the prefix already
// handed to the stream.
func (b *Buffer) RemoveRange(start, end int) {
	b.q.RemoveRange(start, end)
}

// Peek returns the buffered bytes without consuming them.
func (b *Buffer) Peek() []byte {
	return b.q.Bytes()
}

func (b *Buffer) Len() int {
	return b.q.Len()
}

// Reset drops every buffered byte without waking anyone.
func (b *Buffer) Reset() {
	b.q.Reset()
}

// Wake notifies the registered waiter without appending.
func (b *Buffer) Wake() {
	b.slot.Notify()
}

// RegisterWaiter stores w, replacing any earlier waiter.
func (b *Buffer) RegisterWaiter(w task.Waker) {
	b.slot.Register(w)
}
