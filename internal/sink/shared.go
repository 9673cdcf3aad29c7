package sink

import (
	"context"
	"sync"

	"github.com/danmuck/framesink/internal/task"
)

// Shared guards a Sink with a mutex so one goroutine can wait on Next while
// others Write or Close. The lock is held for each poll, never while
// waiting, so a concurrent Write wakes the waiter through the outbound
// buffer.
type Shared struct {
	mu   sync.Mutex
	sink *Sink
}

func NewShared(s *Sink) *Shared {
	return &Shared{sink: s}
}

func (s *Shared) Write(message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Write(message)
}

func (s *Shared) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Close()
}

func (s *Shared) Limit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Limit(n)
}

func (s *Shared) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.State()
}

func (s *Shared) Buffered() (in, out int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Buffered()
}

func (s *Shared) Poll(w task.Waker) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Poll(w)
}

// Next blocks until the next message or fault, or until ctx is done.
// Only one goroutine may call Next at a time.
func (s *Shared) Next(ctx context.Context) ([]byte, error) {
	return drive(ctx, s.Poll)
}
