package stream

import (
	"io"
	"sync"

	"github.com/danmuck/framesink/internal/protocol/notify"
	"github.com/danmuck/framesink/internal/task"
)

const DefaultRingSize = 64 * 1024

// Ring is a bounded byte ring with one non-blocking side for pollers and a
// blocking side for goroutines. Pollers waiting for data or space register
// in single-slot notifiers; goroutines wait on a condition variable.
type Ring struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  []byte
	r    int
	n    int
	eof  bool
	err  error

	readable notify.Slot
	writable notify.Slot
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	r := &Ring{buf: make([]byte, capacity)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Buffered returns the number of unread bytes.
func (r *Ring) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func (r *Ring) TryRead(w task.Waker, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	if r.n == 0 {
		if err := r.readErrLocked(); err != nil {
			r.mu.Unlock()
			return 0, err
		}
		r.readable.Register(w)
		r.mu.Unlock()
		return 0, ErrWouldBlock
	}
	n := r.readLocked(p)
	r.mu.Unlock()
	r.afterRead()
	return n, nil
}

func (r *Ring) TryWrite(w task.Waker, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	if err := r.writeErrLocked(); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	if r.n == len(r.buf) {
		r.writable.Register(w)
		r.mu.Unlock()
		return 0, ErrWouldBlock
	}
	n := r.writeLocked(p)
	r.mu.Unlock()
	r.afterWrite()
	return n, nil
}

// Read blocks until at least one byte is available or the ring is closed.
func (r *Ring) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	for r.n == 0 {
		if err := r.readErrLocked(); err != nil {
			r.mu.Unlock()
			return 0, err
		}
		r.cond.Wait()
	}
	n := r.readLocked(p)
	r.mu.Unlock()
	r.afterRead()
	return n, nil
}

// Write blocks until all of p is buffered or the ring is closed.
func (r *Ring) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		r.mu.Lock()
		for r.n == len(r.buf) && r.writeErrLocked() == nil {
			r.cond.Wait()
		}
		if err := r.writeErrLocked(); err != nil {
			r.mu.Unlock()
			return written, err
		}
		written += r.writeLocked(p[written:])
		r.mu.Unlock()
		r.afterWrite()
	}
	return written, nil
}

// CloseWrite marks the end of input. Readers drain what is buffered and
// then see io.EOF.
func (r *Ring) CloseWrite() {
	r.mu.Lock()
	r.eof = true
	r.mu.Unlock()
	r.wakeAll()
}

// CloseWithError fails further writes with err and, once drained, reads.
// The first error wins.
func (r *Ring) CloseWithError(err error) {
	if err == nil {
		err = io.ErrClosedPipe
	}
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
	r.wakeAll()
}

func (r *Ring) Close() error {
	r.CloseWithError(io.ErrClosedPipe)
	return nil
}

func (r *Ring) readErrLocked() error {
	if r.err != nil {
		return r.err
	}
	if r.eof {
		return io.EOF
	}
	return nil
}

func (r *Ring) writeErrLocked() error {
	if r.err != nil {
		return r.err
	}
	if r.eof {
		return io.ErrClosedPipe
	}
	return nil
}

func (r *Ring) readLocked(p []byte) int {
	total := 0
	for total < len(p) && r.n > 0 {
		end := r.r + r.n
		if end > len(r.buf) {
			end = len(r.buf)
		}
		c := copy(p[total:], r.buf[r.r:end])
		total += c
		r.r = (r.r + c) % len(r.buf)
		r.n -= c
	}
	if r.n == 0 {
		r.r = 0
	}
	return total
}

func (r *Ring) writeLocked(p []byte) int {
	total := 0
	for total < len(p) && r.n < len(r.buf) {
		start := (r.r + r.n) % len(r.buf)
		end := len(r.buf)
		if start < r.r {
			end = r.r
		}
		c := copy(r.buf[start:end], p[total:])
		total += c
		r.n += c
	}
	return total
}

func (r *Ring) afterRead() {
	r.cond.Broadcast()
	r.writable.Notify()
}

func (r *Ring) afterWrite() {
	r.cond.Broadcast()
	r.readable.Notify()
}

func (r *Ring) wakeAll() {
	r.cond.Broadcast()
	r.readable.Notify()
	r.writable.Notify()
}
