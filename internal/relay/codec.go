package relay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/snappy"
)

var ErrUnknownCodec = errors.New("relay: unknown codec")

// Codec transforms payloads on their way into and out of a sink. The frame
// layer never sees the transform; it carries whatever bytes Encode returns.
type Codec interface {
	Name() string
	Encode(payload []byte) []byte
	Decode(payload []byte) ([]byte, error)
}

func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return noneCodec{}, nil
	case "snappy":
		return snappyCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

type noneCodec struct{}

func (noneCodec) Name() string                    { return "none" }
func (noneCodec) Encode(p []byte) []byte          { return p }
func (noneCodec) Decode(p []byte) ([]byte, error) { return p, nil }

type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Encode(p []byte) []byte {
	return snappy.Encode(nil, p)
}

func (snappyCodec) Decode(p []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, p)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return out, nil
}
