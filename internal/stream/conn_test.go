package stream

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/danmuck/framesink/internal/task"
	"github.com/danmuck/framesink/internal/testutil/testlog"
)

func readAll(t *testing.T, s Stream, want int) []byte {
	t.Helper()
	sig := task.NewSignal()
	out := make([]byte, 0, want)
	buf := make([]byte, 64)
	deadline := time.After(2 * time.Second)
	for len(out) < want {
		n, err := s.TryRead(sig, buf)
		switch {
		case err == nil:
			out = append(out, buf[:n]...)
		case errors.Is(err, ErrWouldBlock):
			select {
			case <-sig.C():
			case <-deadline:
				t.Fatalf("timed out after %d bytes", len(out))
			}
		default:
			t.Fatalf("read: %v", err)
		}
	}
	return out
}

func TestConnPumpsOverNetPipe(t *testing.T) {
	testlog.Start(t)
	left, right := net.Pipe()
	a := FromConn(left, WithRingSize(32), WithChunkSize(8))
	b := FromConn(right)
	defer a.Close()
	defer b.Close()

	msg := []byte("a message longer than one chunk")
	written := 0
	sig := task.NewSignal()
	for written < len(msg) {
		n, err := a.TryWrite(sig, msg[written:])
		if errors.Is(err, ErrWouldBlock) {
			<-sig.C()
			continue
		}
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		written += n
	}
	if got := readAll(t, b, len(msg)); string(got) != string(msg) {
		t.Fatalf("got %q", got)
	}
}

func TestConnCloseWriteOverTCP(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()
	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server := <-accepted
	defer server.Close()

	sc := FromConn(client)
	defer sc.Close()
	if _, err := sc.TryWrite(task.Nop, []byte("bye")); err != nil {
		t.Fatalf("write: %v", err)
	}
	sig := task.NewSignal()
	for {
		err := sc.TryCloseWrite(sig)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrWouldBlock) {
			t.Fatalf("close write: %v", err)
		}
		select {
		case <-sig.C():
		case <-time.After(2 * time.Second):
			t.Fatalf("half-close did not complete")
		}
	}
	got, err := io.ReadAll(server)
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(got) != "bye" {
		t.Fatalf("server got %q", got)
	}
	if _, err := sc.TryWrite(task.Nop, []byte("late")); err == nil {
		t.Fatalf("expected write after half-close to fail")
	}
}

func TestConnPeerCloseSurfacesEOF(t *testing.T) {
	testlog.Start(t)
	left, right := net.Pipe()
	sc := FromConn(left)
	defer sc.Close()
	go func() {
		_, _ = right.Write([]byte("last"))
		_ = right.Close()
	}()
	if got := readAll(t, sc, 4); string(got) != "last" {
		t.Fatalf("got %q", got)
	}
	sig := task.NewSignal()
	for {
		_, err := sc.TryRead(sig, make([]byte, 4))
		if errors.Is(err, ErrWouldBlock) {
			select {
			case <-sig.C():
				continue
			case <-time.After(2 * time.Second):
				t.Fatalf("no terminal read error")
			}
		}
		if !errors.Is(err, io.EOF) {
			t.Fatalf("expected io.EOF, got %v", err)
		}
		return
	}
}
