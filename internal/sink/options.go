package sink

import (
	"math"

	"github.com/rs/zerolog"
)

const (
	DefaultScratchSize = 1024
	Unbounded          = math.MaxInt
)

// Observer receives sink activity, typically to feed metrics.
type Observer interface {
	MessageWritten(size int)
	MessageRead(size int)
	Fault(kind string)
	StateChanged(from, to string)
}

type nopObserver struct{}

func (nopObserver) MessageWritten(int)          {}
func (nopObserver) MessageRead(int)             {}
func (nopObserver) Fault(string)                {}
func (nopObserver) StateChanged(string, string) {}

type Option func(*Sink)

// WithLimit caps the unparsed inbound bytes; see Sink.Limit.
func WithLimit(n int) Option {
	return func(s *Sink) {
		s.Limit(n)
	}
}

// WithScratchSize sets the per-read scratch region, allocated once.
func WithScratchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.scratch = make([]byte, n)
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Sink) {
		s.log = l
	}
}

func WithObserver(o Observer) Option {
	return func(s *Sink) {
		if o != nil {
			s.obs = o
		}
	}
}
