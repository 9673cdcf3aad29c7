// Package stream defines the non-blocking byte stream consumed by the sink
// and adapters that provide it over in-memory rings and net.Conn.
//
// Every operation either makes progress, fails, or returns ErrWouldBlock
// after registering the caller's waker for the matching readiness.
package stream

import (
	"errors"

	"github.com/danmuck/framesink/internal/task"
)

var ErrWouldBlock = errors.New("stream: operation would block")

// Stream is a bidirectional byte stream with non-blocking operations.
type Stream interface {
	// TryRead reads up to len(p) bytes. It returns io.EOF once the peer has
	// half-closed and every byte has been consumed.
	TryRead(w task.Waker, p []byte) (int, error)
	// TryWrite writes up to len(p) bytes.
	TryWrite(w task.Waker, p []byte) (int, error)
	// TryCloseWrite starts or continues the write-side half-close. It
	// returns ErrWouldBlock until the half-close has completed.
	TryCloseWrite(w task.Waker) error
}
