package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/framesink/internal/protocol/frame"
	"github.com/danmuck/framesink/internal/sink"
	"github.com/danmuck/framesink/internal/stream"
	"github.com/danmuck/framesink/internal/testutil/testlog"
	"github.com/danmuck/framesink/internal/testutil/tlstest"
)

// echoOnce answers the first frame on the first accepted connection. The
// connection stays open until the test ends so nothing is cut off in flight.
func echoOnce(t *testing.T, ln net.Listener) {
	t.Helper()
	accepted := make(chan net.Conn, 1)
	t.Cleanup(func() {
		select {
		case c := <-accepted:
			c.Close()
		default:
		}
	})
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- c
		msg, err := frame.ReadFrame(c, 0)
		if err != nil {
			return
		}
		_ = frame.WriteFrame(c, msg)
	}()
}

func roundTrip(t *testing.T, conn net.Conn, message string) {
	t.Helper()
	sc := stream.FromConn(conn)
	defer sc.Close()
	s := sink.New(sc)
	if err := s.Write([]byte(message)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	got, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if string(got) != message {
		t.Fatalf("echo got %q want %q", got, message)
	}
}

func TestParseKind(t *testing.T) {
	testlog.Start(t)
	for raw, want := range map[string]Kind{"tcp": KindTCP, " TLS ": KindTLS, "kcp": KindKCP} {
		got, err := ParseKind(raw)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) got=%q err=%v", raw, got, err)
		}
	}
	if _, err := ParseKind("quic"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestTCPRoundTrip(t *testing.T) {
	testlog.Start(t)
	ln, err := Listen(Endpoint{Kind: KindTCP, Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	echoOnce(t, ln)
	conn, err := Dial(context.Background(), Endpoint{Kind: KindTCP, Addr: ln.Addr().String()})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	roundTrip(t, conn, "over tcp")
}

func TestMutualTLSRoundTrip(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "framesink-test-ca")
	server := ca.IssueLocalhost(t)
	client := ca.IssueClient(t, "relay-client")

	serverTLS, err := ServerTLS(server.Cert, server.Key, ca.CAFile(), true)
	if err != nil {
		t.Fatalf("server tls: %v", err)
	}
	clientTLS, err := ClientTLS(ca.CAFile(), client.Cert, client.Key, "localhost", false)
	if err != nil {
		t.Fatalf("client tls: %v", err)
	}

	ln, err := Listen(Endpoint{Kind: KindTLS, Addr: "127.0.0.1:0", TLS: serverTLS})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	echoOnce(t, ln)
	conn, err := Dial(context.Background(), Endpoint{Kind: KindTLS, Addr: ln.Addr().String(), TLS: clientTLS})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	roundTrip(t, conn, "over mutual tls")
}

func TestTLSRequiresConfig(t *testing.T) {
	testlog.Start(t)
	if _, err := Listen(Endpoint{Kind: KindTLS, Addr: "127.0.0.1:0"}); !errors.Is(err, ErrTLSConfig) {
		t.Fatalf("expected ErrTLSConfig, got %v", err)
	}
	if _, err := Dial(context.Background(), Endpoint{Kind: KindTLS, Addr: "127.0.0.1:1"}); !errors.Is(err, ErrTLSConfig) {
		t.Fatalf("expected ErrTLSConfig, got %v", err)
	}
}

func TestKCPRoundTrip(t *testing.T) {
	testlog.Start(t)
	ln, err := Listen(Endpoint{Kind: KindKCP, Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	echoOnce(t, ln)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, Endpoint{Kind: KindKCP, Addr: ln.Addr().String()})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	roundTrip(t, conn, "over kcp")
}
