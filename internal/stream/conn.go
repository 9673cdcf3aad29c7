package stream

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/danmuck/framesink/internal/protocol/notify"
	"github.com/danmuck/framesink/internal/task"
	"github.com/rs/zerolog"
)

const defaultChunkSize = 32 * 1024

type ConnOption func(*connOptions)

type connOptions struct {
	ringSize  int
	chunkSize int
	logger    zerolog.Logger
}

// WithRingSize bounds each direction's in-memory buffer.
func WithRingSize(n int) ConnOption {
	return func(o *connOptions) {
		if n > 0 {
			o.ringSize = n
		}
	}
}

// WithChunkSize sets the pump read size.
func WithChunkSize(n int) ConnOption {
	return func(o *connOptions) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

func WithLogger(l zerolog.Logger) ConnOption {
	return func(o *connOptions) {
		o.logger = l
	}
}

// Conn adapts a blocking net.Conn to Stream. A reader pump copies from the
// connection into the inbound ring and a writer pump drains the outbound
// ring into the connection, so readiness is reported through the rings'
// wakers.
type Conn struct {
	conn net.Conn
	in   *Ring
	out  *Ring
	log  zerolog.Logger

	mu        sync.Mutex
	flushed   bool
	closeErr  error
	closeWait notify.Slot

	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Stream = (*Conn)(nil)

func FromConn(c net.Conn, opts ...ConnOption) *Conn {
	o := connOptions{
		ringSize:  DefaultRingSize,
		chunkSize: defaultChunkSize,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	sc := &Conn{
		conn: c,
		in:   NewRing(o.ringSize),
		out:  NewRing(o.ringSize),
		log:  o.logger.With().Str("remote", remoteString(c)).Logger(),
	}
	sc.wg.Add(2)
	go sc.readPump(o.chunkSize)
	go sc.writePump(o.chunkSize)
	return sc
}

func (c *Conn) TryRead(w task.Waker, p []byte) (int, error) {
	return c.in.TryRead(w, p)
}

func (c *Conn) TryWrite(w task.Waker, p []byte) (int, error) {
	return c.out.TryWrite(w, p)
}

// TryCloseWrite stops accepting writes and completes once every buffered
// byte has reached the connection and its write side has been shut down.
func (c *Conn) TryCloseWrite(w task.Waker) error {
	c.out.CloseWrite()
	if done, err := c.closeResult(); done {
		return err
	}
	c.closeWait.Register(w)
	if done, err := c.closeResult(); done {
		return err
	}
	return ErrWouldBlock
}

// NetConn returns the wrapped connection.
func (c *Conn) NetConn() net.Conn {
	return c.conn
}

// Close tears the connection down and waits for both pumps to exit.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
		c.in.Close()
		c.out.Close()
		c.wg.Wait()
	})
	return err
}

func (c *Conn) closeResult() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushed, c.closeErr
}

func (c *Conn) finishClose(err error) {
	c.mu.Lock()
	c.flushed = true
	c.closeErr = err
	c.mu.Unlock()
	c.closeWait.Notify()
}

func (c *Conn) readPump(chunk int) {
	defer c.wg.Done()
	buf := make([]byte, chunk)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if _, werr := c.in.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.log.Debug().Msg("stream: peer closed write side")
				c.in.CloseWrite()
			} else {
				c.log.Debug().Err(err).Msg("stream: read pump stopped")
				c.in.CloseWithError(err)
			}
			return
		}
	}
}

func (c *Conn) writePump(chunk int) {
	defer c.wg.Done()
	buf := make([]byte, chunk)
	for {
		n, err := c.out.Read(buf)
		if n > 0 {
			if _, werr := c.conn.Write(buf[:n]); werr != nil {
				c.log.Debug().Err(werr).Msg("stream: write pump stopped")
				c.out.CloseWithError(werr)
				c.finishClose(werr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = c.halfClose()
				c.log.Debug().Err(err).Msg("stream: write side closed")
			}
			c.finishClose(err)
			return
		}
	}
}

func (c *Conn) halfClose() error {
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.conn.Close()
}

func remoteString(c net.Conn) string {
	if addr := c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
