package sink

import (
	"errors"

	"github.com/danmuck/framesink/internal/protocol/frame"
)

var (
	ErrWrite         = errors.New("sink: write failed")
	ErrRead          = errors.New("sink: read failed")
	ErrLimitExceeded = errors.New("sink: inbound limit exceeded")
	ErrParse         = errors.New("sink: parse failed")
	ErrClosed        = errors.New("sink: poll after closed")
	ErrUnflushed     = errors.New("sink: queued output discarded at close")
	ErrSizeOverflow  = frame.ErrSizeOverflow
)

// FaultKind returns a stable label for err, or "" when err is not a sink
// fault.
func FaultKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrite):
		return "write"
	case errors.Is(err, ErrRead):
		return "read"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrSizeOverflow):
		return "size_overflow"
	default:
		return ""
	}
}
