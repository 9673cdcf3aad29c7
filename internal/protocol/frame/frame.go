package frame

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/danmuck/framesink/internal/bytebuf"
)

// HeaderLen is the size of the little-endian u32 length prefix.
const HeaderLen = 4

var (
	ErrNotReady        = errors.New("frame: not ready")
	ErrCorrupt         = errors.New("frame: corrupt")
	ErrSizeOverflow    = errors.New("frame: message length overflows header")
	ErrShortHeader     = errors.New("frame: short length header")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// maxPayloadLen is the largest declared length addressable as an int.
var maxPayloadLen = uint64(math.MaxInt)

// Encode wraps message in a length-prefixed frame.
func Encode(message []byte) ([]byte, error) {
	return AppendEncode(make([]byte, 0, HeaderLen+len(message)), message)
}

// AppendEncode appends the frame for message to dst. On error dst is
// returned unchanged.
func AppendEncode(dst, message []byte) ([]byte, error) {
	h, err := encodeHeader(uint64(len(message)))
	if err != nil {
		return dst, err
	}
	dst = append(dst, h[:]...)
	return append(dst, message...), nil
}

// Header returns the length prefix for a payload of n bytes.
func Header(n int) ([HeaderLen]byte, error) {
	return encodeHeader(uint64(n))
}

func encodeHeader(n uint64) ([HeaderLen]byte, error) {
	var h [HeaderLen]byte
	if n > math.MaxUint32 {
		return h, ErrSizeOverflow
	}
	binary.LittleEndian.PutUint32(h[:], uint32(n))
	return h, nil
}

func payloadLen(h []byte) (int, error) {
	n := uint64(binary.LittleEndian.Uint32(h))
	if n > maxPayloadLen {
		return 0, ErrCorrupt
	}
	return int(n), nil
}

// Decode consumes one complete frame from the front of buf and returns a
// copy of its payload. ErrNotReady leaves buf untouched, so the same queue
// can be offered again once more bytes have arrived.
func Decode(buf *bytebuf.Queue) ([]byte, error) {
	b := buf.Bytes()
	if len(b) < HeaderLen {
		return nil, ErrNotReady
	}
	n, err := payloadLen(b[:HeaderLen])
	if err != nil {
		return nil, err
	}
	if uint64(n)+HeaderLen > uint64(len(b)) {
		return nil, ErrNotReady
	}
	message := make([]byte, n)
	copy(message, b[HeaderLen:HeaderLen+n])
	buf.Discard(HeaderLen + n)
	return message, nil
}

// WriteFrame writes one frame to a blocking writer.
func WriteFrame(w io.Writer, message []byte) error {
	h, err := encodeHeader(uint64(len(message)))
	if err != nil {
		return err
	}
	if _, err := w.Write(h[:]); err != nil {
		return err
	}
	if len(message) > 0 {
		if _, err := w.Write(message); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrame reads one frame from a blocking reader. max bounds the declared
// payload length; zero means unbounded.
func ReadFrame(r io.Reader, max uint32) ([]byte, error) {
	var h [HeaderLen]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	n, err := payloadLen(h[:])
	if err != nil {
		return nil, err
	}
	if max > 0 && uint64(n) > uint64(max) {
		return nil, ErrPayloadTooLarge
	}
	message := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, message); err != nil {
			return nil, err
		}
	}
	return message, nil
}
