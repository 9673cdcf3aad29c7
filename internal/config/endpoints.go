package config

import (
	"time"

	"github.com/danmuck/framesink/internal/transport"
)

// ListenEndpoint resolves the listener section, loading server TLS material
// when the transport is tls.
func (c Config) ListenEndpoint() (transport.Endpoint, error) {
	kind, err := transport.ParseKind(c.Listen.Transport)
	if err != nil {
		return transport.Endpoint{}, err
	}
	ep := transport.Endpoint{Kind: kind, Addr: c.Listen.Addr}
	if kind == transport.KindTLS {
		ep.TLS, err = transport.ServerTLS(c.TLS.CertFile, c.TLS.KeyFile, c.TLS.CAFile, c.TLS.Mutual)
		if err != nil {
			return transport.Endpoint{}, err
		}
	}
	return ep, nil
}

// DialEndpoint resolves the dial section. Client certificates are attached
// only when tls.mutual is set.
func (c Config) DialEndpoint() (transport.Endpoint, error) {
	kind, err := transport.ParseKind(c.Dial.Transport)
	if err != nil {
		return transport.Endpoint{}, err
	}
	ep := transport.Endpoint{Kind: kind, Addr: c.Dial.Addr}
	if kind == transport.KindTLS {
		var certFile, keyFile string
		if c.TLS.Mutual {
			certFile, keyFile = c.TLS.CertFile, c.TLS.KeyFile
		}
		ep.TLS, err = transport.ClientTLS(c.TLS.CAFile, certFile, keyFile, c.TLS.ServerName, c.TLS.InsecureSkipVerify)
		if err != nil {
			return transport.Endpoint{}, err
		}
	}
	return ep, nil
}

func (d DialConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

func (d DialConfig) BackoffInitial() time.Duration {
	return time.Duration(d.BackoffInitialMS) * time.Millisecond
}

func (d DialConfig) BackoffMax() time.Duration {
	return time.Duration(d.BackoffMaxMS) * time.Millisecond
}
