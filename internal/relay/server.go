package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/framesink/internal/observability"
	"github.com/danmuck/framesink/internal/sink"
	"github.com/danmuck/framesink/internal/stream"
	"github.com/rs/xid"
	"github.com/sourcegraph/conc"
)

var ErrServerClosed = errors.New("relay: server closed")

// SessionInfo is a point-in-time view of one relay session.
type SessionInfo struct {
	ID       string    `json:"id"`
	Remote   string    `json:"remote"`
	Opened   time.Time `json:"opened"`
	Received uint64    `json:"received"`
	Sent     uint64    `json:"sent"`
	State    string    `json:"state"`
}

// Server echoes every message it receives back to the sender, one session
// per accepted connection.
type Server struct {
	node string
	set  settings

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	ln       net.Listener
	sessions map[string]*session
	closed   atomic.Bool
	serving  atomic.Bool
	wg       conc.WaitGroup
}

type session struct {
	id      string
	remote  string
	opened  time.Time
	conn    *stream.Conn
	sink    *sink.Shared
	metrics observability.SinkMetrics

	received atomic.Uint64
	sent     atomic.Uint64
}

func NewServer(node string, opts ...Option) *Server {
	set := defaultSettings()
	for _, opt := range opts {
		opt(&set)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		node:     node,
		set:      set,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
}

// Serve accepts connections on ln until Shutdown. It returns
// ErrServerClosed after a shutdown and the accept error otherwise.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.set.log.Info().
		Str("node", s.node).
		Str("addr", ln.Addr().String()).
		Str("codec", s.set.codec.Name()).
		Msg("relay: serving")
	s.serving.Store(true)
	defer s.serving.Store(false)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			return err
		}
		s.open(conn)
	}
}

func (s *Server) open(conn net.Conn) {
	sess := &session{
		id:      xid.New().String(),
		remote:  conn.RemoteAddr().String(),
		opened:  time.Now(),
		metrics: observability.NewSinkMetrics(s.node),
	}
	sess.conn, sess.sink = s.set.attach(conn, sess)

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = sess.conn.Close()
		return
	}
	s.sessions[sess.id] = sess
	observability.SessionOpened(s.node)
	s.wg.Go(func() { s.serveSession(sess) })
	s.mu.Unlock()

	s.set.log.Debug().Str("session", sess.id).Str("remote", sess.remote).Msg("relay: session opened")
}

func (s *Server) serveSession(sess *session) {
	defer func() {
		_ = sess.conn.Close()
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		observability.SessionClosed(s.node)
	}()

	for {
		msg, err := sess.sink.Next(s.ctx)
		if err != nil {
			ev := s.set.log.Debug()
			if !errors.Is(err, sink.ErrClosed) && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				ev = s.set.log.Warn()
			}
			ev.Err(err).Str("session", sess.id).Msg("relay: session ended")
			return
		}
		if _, err := s.set.codec.Decode(msg); err != nil {
			s.set.log.Warn().Err(err).Str("session", sess.id).Msg("relay: rejecting payload")
			sess.sink.Close()
			continue
		}
		if err := sess.sink.Write(msg); err != nil {
			s.set.log.Warn().Err(err).Str("session", sess.id).Msg("relay: echo failed")
			sess.sink.Close()
		}
	}
}

// Serving reports whether Serve is accepting connections.
func (s *Server) Serving() bool {
	return s.serving.Load() && !s.closed.Load()
}

// Sessions returns the open sessions, oldest first.
func (s *Server) Sessions() []SessionInfo {
	s.mu.RLock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, SessionInfo{
			ID:       sess.id,
			Remote:   sess.remote,
			Opened:   sess.opened,
			Received: sess.received.Load(),
			Sent:     sess.sent.Load(),
			State:    sess.sink.State().String(),
		})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Opened.Before(out[j].Opened) })
	return out
}

// Shutdown stops accepting, closes every session gracefully and waits for
// them to finish. If ctx ends first the remaining sessions are cut off and
// ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed.Store(true)
	s.serving.Store(false)
	if s.ln != nil {
		_ = s.ln.Close()
	}
	for _, sess := range s.sessions {
		sess.sink.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (sess *session) MessageWritten(n int) {
	sess.sent.Add(1)
	sess.metrics.MessageWritten(n)
}

func (sess *session) MessageRead(n int) {
	sess.received.Add(1)
	sess.metrics.MessageRead(n)
}

func (sess *session) Fault(kind string) {
	sess.metrics.Fault(kind)
}

func (sess *session) StateChanged(from, to string) {
	sess.metrics.StateChanged(from, to)
}
