package frame

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/danmuck/framesink/internal/bytebuf"
	"github.com/danmuck/framesink/internal/testutil/testlog"
)

func random(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("random: %v", err)
	}
	return b
}

func queueOf(b []byte) *bytebuf.Queue {
	q := &bytebuf.Queue{}
	q.Append(b)
	return q
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	for _, size := range []int{0, 1, 128, 1 << 16} {
		message := random(t, size)
		wire, err := Encode(message)
		if err != nil {
			t.Fatalf("encode size=%d: %v", size, err)
		}
		if len(wire) != HeaderLen+size {
			t.Fatalf("wire len got=%d want=%d", len(wire), HeaderLen+size)
		}
		q := queueOf(wire)
		got, err := Decode(q)
		if err != nil {
			t.Fatalf("decode size=%d: %v", size, err)
		}
		if !bytes.Equal(got, message) {
			t.Fatalf("payload mismatch size=%d", size)
		}
		if q.Len() != 0 {
			t.Fatalf("expected buffer consumed, %d bytes left", q.Len())
		}
	}
}

func TestEncodeWireFormatIsLittleEndian(t *testing.T) {
	testlog.Start(t)
	wire, err := Encode([]byte("hello"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o'}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire got=%v want=%v", wire, want)
	}
}

func TestDecodePartialBufferIsUntouched(t *testing.T) {
	testlog.Start(t)
	wire, err := Encode(random(t, 128))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for k := 0; k < len(wire); k += 7 {
		partial := append([]byte(nil), wire[:k]...)
		q := queueOf(partial)
		if _, err := Decode(q); !errors.Is(err, ErrNotReady) {
			t.Fatalf("k=%d expected ErrNotReady, got %v", k, err)
		}
		if !bytes.Equal(q.Bytes(), partial) {
			t.Fatalf("k=%d buffer mutated on ErrNotReady", k)
		}
	}
}

func TestDecodeMultipleInOrder(t *testing.T) {
	testlog.Start(t)
	messages := [][]byte{random(t, 128), random(t, 3), random(t, 128)}
	q := &bytebuf.Queue{}
	for _, m := range messages {
		wire, err := Encode(m)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		q.Append(wire)
	}
	i := 0
	for {
		got, err := Decode(q)
		if errors.Is(err, ErrNotReady) {
			break
		}
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !bytes.Equal(got, messages[i]) {
			t.Fatalf("message %d mismatch", i)
		}
		i++
	}
	if i != len(messages) {
		t.Fatalf("decoded %d messages, want %d", i, len(messages))
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty buffer, %d left", q.Len())
	}
}

func TestDecodeLeavesTrailingBytes(t *testing.T) {
	testlog.Start(t)
	message := random(t, 128)
	wire, err := Encode(message)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	extra := []byte{0xde, 0xad, 0xbe}
	q := queueOf(append(wire, extra...))
	got, err := Decode(q)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, message) {
		t.Fatalf("payload mismatch")
	}
	if _, err := Decode(q); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady on trailing bytes, got %v", err)
	}
	if !bytes.Equal(q.Bytes(), extra) {
		t.Fatalf("trailing bytes got=%v want=%v", q.Bytes(), extra)
	}
}

func TestDecodedMessageDoesNotAliasBuffer(t *testing.T) {
	testlog.Start(t)
	wire, _ := Encode([]byte("abcd"))
	q := queueOf(wire)
	got, err := Decode(q)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	q.Append([]byte("zzzzzzzz"))
	if string(got) != "abcd" {
		t.Fatalf("decoded message changed after reuse: %q", got)
	}
}

func TestDecodeCorruptHeader(t *testing.T) {
	testlog.Start(t)
	saved := maxPayloadLen
	maxPayloadLen = 1024
	defer func() { maxPayloadLen = saved }()

	q := queueOf([]byte{0x00, 0x08, 0x00, 0x00, 1, 2, 3})
	if _, err := Decode(q); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestEncodeSizeOverflow(t *testing.T) {
	testlog.Start(t)
	if _, err := encodeHeader(math.MaxUint32); err != nil {
		t.Fatalf("max u32 should encode: %v", err)
	}
	if _, err := encodeHeader(math.MaxUint32 + 1); !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}
}

func TestHeaderMatchesEncode(t *testing.T) {
	testlog.Start(t)
	message := random(t, 300)
	h, err := Header(len(message))
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	wire, _ := Encode(message)
	if !bytes.Equal(h[:], wire[:HeaderLen]) {
		t.Fatalf("header got=%v want=%v", h, wire[:HeaderLen])
	}
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("one")); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if err := WriteFrame(&buf, nil); err != nil {
		t.Fatalf("write empty frame: %v", err)
	}
	got, err := ReadFrame(&buf, 0)
	if err != nil || string(got) != "one" {
		t.Fatalf("read frame got=%q err=%v", got, err)
	}
	got, err = ReadFrame(&buf, 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("read empty frame got=%q err=%v", got, err)
	}
	if _, err := ReadFrame(&buf, 0); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end, got %v", err)
	}
}

func TestReadFrameErrors(t *testing.T) {
	testlog.Start(t)
	if _, err := ReadFrame(bytes.NewReader([]byte{1, 2}), 0); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
	wire, _ := Encode(make([]byte, 64))
	if _, err := ReadFrame(bytes.NewReader(wire), 32); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}
