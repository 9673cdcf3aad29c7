package stream

import (
	"github.com/danmuck/framesink/internal/task"
)

// Endpoint is one side of an in-memory stream: it reads from one ring and
// writes to another. It implements Stream for pollers and io.ReadWriteCloser
// for goroutine peers.
type Endpoint struct {
	in  *Ring
	out *Ring
}

var _ Stream = (*Endpoint)(nil)

// NewPipe returns two connected endpoints; bytes written to one are read
// from the other.
func NewPipe(capacity int) (*Endpoint, *Endpoint) {
	ab := NewRing(capacity)
	ba := NewRing(capacity)
	return &Endpoint{in: ba, out: ab}, &Endpoint{in: ab, out: ba}
}

// NewLoopback returns an endpoint that reads back what it writes.
func NewLoopback(capacity int) *Endpoint {
	r := NewRing(capacity)
	return &Endpoint{in: r, out: r}
}

func (e *Endpoint) TryRead(w task.Waker, p []byte) (int, error) {
	return e.in.TryRead(w, p)
}

func (e *Endpoint) TryWrite(w task.Waker, p []byte) (int, error) {
	return e.out.TryWrite(w, p)
}

// TryCloseWrite half-closes the outbound ring; it completes immediately.
func (e *Endpoint) TryCloseWrite(task.Waker) error {
	e.out.CloseWrite()
	return nil
}

func (e *Endpoint) Read(p []byte) (int, error) {
	return e.in.Read(p)
}

func (e *Endpoint) Write(p []byte) (int, error) {
	return e.out.Write(p)
}

func (e *Endpoint) CloseWrite() error {
	e.out.CloseWrite()
	return nil
}

// CloseWithError fails both directions with err.
func (e *Endpoint) CloseWithError(err error) {
	e.in.CloseWithError(err)
	e.out.CloseWithError(err)
}

func (e *Endpoint) Close() error {
	e.out.CloseWrite()
	return e.in.Close()
}

// Buffered returns the unread inbound bytes.
func (e *Endpoint) Buffered() int {
	return e.in.Buffered()
}
