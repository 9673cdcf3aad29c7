// Package transport dials and listens on the byte-stream transports the
// relay runs over.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	kcp "github.com/xtaci/kcp-go"
)

type Kind string

const (
	KindTCP Kind = "tcp"
	KindTLS Kind = "tls"
	KindKCP Kind = "kcp"
)

// KCP forward error correction shards.
const (
	kcpDataShards   = 10
	kcpParityShards = 3
)

var (
	ErrUnknownKind = errors.New("transport: unknown kind")
	ErrTLSConfig   = errors.New("transport: tls endpoint without tls config")
)

// Endpoint is an address on a transport. TLS is required for KindTLS.
type Endpoint struct {
	Kind Kind
	Addr string
	TLS  *tls.Config
}

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindTCP, KindTLS, KindKCP:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

func Listen(ep Endpoint) (net.Listener, error) {
	switch ep.Kind {
	case KindTCP:
		return net.Listen("tcp", ep.Addr)
	case KindTLS:
		if ep.TLS == nil {
			return nil, ErrTLSConfig
		}
		return tls.Listen("tcp", ep.Addr, ep.TLS)
	case KindKCP:
		ln, err := kcp.ListenWithOptions(ep.Addr, nil, kcpDataShards, kcpParityShards)
		if err != nil {
			return nil, err
		}
		return ln, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ep.Kind)
	}
}

func Dial(ctx context.Context, ep Endpoint) (net.Conn, error) {
	switch ep.Kind {
	case KindTCP:
		var d net.Dialer
		return d.DialContext(ctx, "tcp", ep.Addr)
	case KindTLS:
		if ep.TLS == nil {
			return nil, ErrTLSConfig
		}
		d := tls.Dialer{Config: ep.TLS}
		return d.DialContext(ctx, "tcp", ep.Addr)
	case KindKCP:
		return dialKCP(ctx, ep.Addr)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ep.Kind)
	}
}

func dialKCP(ctx context.Context, addr string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := kcp.DialWithOptions(addr, nil, kcpDataShards, kcpParityShards)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}

// ServerTLS builds a listener config. With mutual set, client certificates
// are required and verified against caFile.
func ServerTLS(certFile, keyFile, caFile string, mutual bool) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server key pair: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if mutual {
		pool, err := loadPool(caFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

// ClientTLS builds a dialer config. certFile and keyFile are optional and
// only needed against a mutual-auth listener.
func ClientTLS(caFile, certFile, keyFile, serverName string, insecure bool) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: insecure,
		MinVersion:         tls.VersionTLS12,
	}
	if caFile != "" {
		pool, err := loadPool(caFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if certFile != "" || keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func loadPool(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca file %s has no certificates", caFile)
	}
	return pool, nil
}
