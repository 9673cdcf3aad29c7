package sink

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/framesink/internal/bytebuf"
	"github.com/danmuck/framesink/internal/protocol/frame"
	"github.com/danmuck/framesink/internal/protocol/notify"
	"github.com/danmuck/framesink/internal/stream"
	"github.com/danmuck/framesink/internal/task"
	"github.com/rs/zerolog"
)

// Sink reads and writes length-prefixed messages over a stream.
// It exclusively owns the stream and both buffers; it is not safe for
// concurrent use (see Shared).
type Sink struct {
	stream  stream.Stream
	out     notify.Buffer
	in      bytebuf.Queue
	scratch []byte
	state   State
	limit   int
	log     zerolog.Logger
	obs     Observer

	// halfClosing is set once TryCloseWrite has been attempted; the stream
	// takes no more writes after that.
	halfClosing bool
	discarded   int

	decodeFrame func(*bytebuf.Queue) ([]byte, error)
}

func New(s stream.Stream, opts ...Option) *Sink {
	sk := &Sink{
		stream:  s,
		scratch: make([]byte, DefaultScratchSize),
		state:   Open,
		limit:   Unbounded,
		log:     zerolog.Nop(),
		obs:     nopObserver{},

		decodeFrame: frame.Decode,
	}
	for _, opt := range opts {
		opt(sk)
	}
	return sk
}

// Limit sets the maximum number of received bytes held while waiting for a
// complete frame. Exceeding it is a terminal fault. Negative values are
// treated as zero.
func (s *Sink) Limit(n int) {
	if n < 0 {
		n = 0
	}
	s.limit = n
}

// Write frames message and queues it for the next poll, waking a suspended
// poller. Only ErrSizeOverflow is returned, and then nothing is queued.
func (s *Sink) Write(message []byte) error {
	h, err := frame.Header(len(message))
	if err != nil {
		return err
	}
	s.out.Append(h[:], message)
	s.obs.MessageWritten(len(message))
	return nil
}

// Close requests a graceful shutdown. It takes effect on the next poll,
// which the current waiter is woken to perform.
func (s *Sink) Close() {
	if s.state != Open {
		return
	}
	s.setState(Closing)
	s.out.Wake()
}

func (s *Sink) State() State {
	return s.state
}

// Buffered returns the unparsed inbound and unflushed outbound byte counts.
func (s *Sink) Buffered() (in, out int) {
	return s.in.Len(), s.out.Len()
}

// Poll makes as much progress as possible without blocking. It returns the
// next message, a terminal fault, or task.ErrPending once w has been
// registered for stream readiness and for new outbound writes.
func (s *Sink) Poll(w task.Waker) ([]byte, error) {
	switch s.state {
	case Open:
	case Closing:
		return nil, s.pollClosing(w)
	case Closed:
		return nil, ErrClosed
	}

	if err := s.flush(w); err != nil {
		return nil, s.fail(err)
	}
	s.out.RegisterWaiter(w)

	for {
		n, err := s.stream.TryRead(w, s.scratch)
		if errors.Is(err, stream.ErrWouldBlock) {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if msg, ok, derr := s.decode(); ok || derr != nil {
					return msg, derr
				}
			}
			return nil, s.fail(fmt.Errorf("%w: %w", ErrRead, err))
		}
		if n == 0 {
			break
		}
		if n > s.limit-s.in.Len() {
			return nil, s.fail(ErrLimitExceeded)
		}
		s.in.Append(s.scratch[:n])
		if msg, ok, derr := s.decode(); ok || derr != nil {
			return msg, derr
		}
	}

	if msg, ok, err := s.decode(); ok || err != nil {
		return msg, err
	}
	return nil, task.ErrPending
}

// Next blocks until Poll resolves or ctx is done.
func (s *Sink) Next(ctx context.Context) ([]byte, error) {
	return drive(ctx, s.Poll)
}

func drive(ctx context.Context, poll func(task.Waker) ([]byte, error)) ([]byte, error) {
	sig := task.NewSignal()
	for {
		msg, err := poll(sig)
		if !errors.Is(err, task.ErrPending) {
			return msg, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-sig.C():
		}
	}
}

// pollClosing flushes what the stream accepts without blocking, then
// attempts the half-close on every poll until it completes. Output the
// stream did not take before the first attempt is discarded.
func (s *Sink) pollClosing(w task.Waker) error {
	if !s.halfClosing {
		if err := s.flush(w); err != nil {
			return s.fail(err)
		}
		s.halfClosing = true
		if n := s.out.Len(); n > 0 {
			s.discarded = n
			s.out.Reset()
		}
	}
	err := s.stream.TryCloseWrite(w)
	if errors.Is(err, stream.ErrWouldBlock) {
		return task.ErrPending
	}
	s.setState(Closed)
	if s.discarded > 0 {
		s.log.Warn().Int("bytes", s.discarded).Msg("sink: closed with unflushed output")
		err = errors.Join(err, fmt.Errorf("%w: %d bytes", ErrUnflushed, s.discarded))
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("sink: half-close completed with error")
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return ErrClosed
}

// flush offers buffered output to the stream until it is drained or the
// stream would block, in which case w is registered for write readiness.
func (s *Sink) flush(w task.Waker) error {
	for s.out.Len() > 0 {
		n, err := s.stream.TryWrite(w, s.out.Peek())
		if errors.Is(err, stream.ErrWouldBlock) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if n == 0 {
			return nil
		}
		s.out.RemoveRange(0, n)
	}
	return nil
}

// decode reports ok with a message, or a terminal parse fault; ErrNotReady
// yields (nil, false, nil).
func (s *Sink) decode() ([]byte, bool, error) {
	msg, err := s.decodeFrame(&s.in)
	switch {
	case err == nil:
		s.obs.MessageRead(len(msg))
		return msg, true, nil
	case errors.Is(err, frame.ErrNotReady):
		return nil, false, nil
	default:
		return nil, false, s.fail(fmt.Errorf("%w: %w", ErrParse, err))
	}
}

func (s *Sink) fail(err error) error {
	kind := FaultKind(err)
	s.log.Warn().Err(err).Str("fault", kind).Msg("sink: terminal fault")
	s.obs.Fault(kind)
	s.setState(Closed)
	return err
}

func (s *Sink) setState(next State) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	if next == Closed {
		s.in.Reset()
		s.out.Reset()
	}
	s.log.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("sink: state changed")
	s.obs.StateChanged(prev.String(), next.String())
}
