package relay

import (
	"net"

	"github.com/danmuck/framesink/internal/sink"
	"github.com/danmuck/framesink/internal/stream"
	"github.com/rs/zerolog"
)

type settings struct {
	log         zerolog.Logger
	codec       Codec
	limit       int
	scratchSize int
	ringSize    int
}

func defaultSettings() settings {
	return settings{
		log:         zerolog.Nop(),
		codec:       noneCodec{},
		limit:       sink.Unbounded,
		scratchSize: sink.DefaultScratchSize,
		ringSize:    stream.DefaultRingSize,
	}
}

// Option configures a Server or Client.
type Option func(*settings)

func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.log = l }
}

func WithCodec(c Codec) Option {
	return func(s *settings) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithSinkLimit bounds each session's inbound buffer. Zero or less leaves
// it unbounded.
func WithSinkLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.limit = n
		}
	}
}

func WithScratchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.scratchSize = n
		}
	}
}

func WithRingSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.ringSize = n
		}
	}
}

// attach wraps conn in a stream and a shared sink built from the settings.
func (s settings) attach(conn net.Conn, obs sink.Observer) (*stream.Conn, *sink.Shared) {
	sc := stream.FromConn(conn,
		stream.WithRingSize(s.ringSize),
		stream.WithLogger(s.log),
	)
	sk := sink.New(sc,
		sink.WithLimit(s.limit),
		sink.WithScratchSize(s.scratchSize),
		sink.WithLogger(s.log),
		sink.WithObserver(obs),
	)
	return sc, sink.NewShared(sk)
}
