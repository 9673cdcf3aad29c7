package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/danmuck/framesink/internal/observability"
	"github.com/danmuck/framesink/internal/sink"
	"github.com/danmuck/framesink/internal/stream"
	"github.com/danmuck/framesink/internal/transport"
)

// DialConfig controls how a Client reaches the relay.
type DialConfig struct {
	Endpoint transport.Endpoint
	Attempts uint
	// Timeout bounds each attempt. Zero leaves attempts bounded only by ctx.
	Timeout time.Duration
	Backoff Backoff
}

// Client sends messages to a relay and receives the echoes over one sink.
type Client struct {
	set  settings
	conn *stream.Conn
	sink *sink.Shared
}

// Dial connects with retries. Each failed attempt waits per cfg.Backoff
// before the next; ctx cancels the whole sequence.
func Dial(ctx context.Context, node string, cfg DialConfig, opts ...Option) (*Client, error) {
	set := defaultSettings()
	for _, opt := range opts {
		opt(&set)
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var conn net.Conn
	err := retry.Do(
		func() error {
			attemptCtx, cancel := ctx, context.CancelFunc(func() {})
			if cfg.Timeout > 0 {
				attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			}
			defer cancel()
			c, err := transport.Dial(attemptCtx, cfg.Endpoint)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.Attempts(cfg.Attempts),
		retry.Context(ctx),
		retry.DelayType(cfg.Backoff.delayType(rng)),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			set.log.Debug().
				Err(err).
				Uint("attempt", n+1).
				Str("addr", cfg.Endpoint.Addr).
				Msg("relay: dial failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s %s: %w", cfg.Endpoint.Kind, cfg.Endpoint.Addr, err)
	}
	// kcp carries the dial deadline on the conn itself.
	_ = conn.SetDeadline(time.Time{})

	c := &Client{set: set}
	c.conn, c.sink = set.attach(conn, observability.NewSinkMetrics(node))
	set.log.Debug().Str("addr", cfg.Endpoint.Addr).Str("codec", set.codec.Name()).Msg("relay: connected")
	return c, nil
}

// Send encodes message with the client codec and queues it.
func (c *Client) Send(message []byte) error {
	return c.sink.Write(c.set.codec.Encode(message))
}

// Recv waits for the next echoed message.
func (c *Client) Recv(ctx context.Context) ([]byte, error) {
	msg, err := c.sink.Next(ctx)
	if err != nil {
		return nil, err
	}
	return c.set.codec.Decode(msg)
}

// Exchange sends message and waits for its echo.
func (c *Client) Exchange(ctx context.Context, message []byte) ([]byte, error) {
	if err := c.Send(message); err != nil {
		return nil, err
	}
	return c.Recv(ctx)
}

func (c *Client) State() sink.State {
	return c.sink.State()
}

// Close performs the close handshake, flushing what the connection accepts,
// then releases it. Echoes still in flight are dropped. If queued messages
// had to be dropped too the returned error matches sink.ErrUnflushed.
func (c *Client) Close(ctx context.Context) error {
	c.sink.Close()
	var err error
	for {
		_, err = c.sink.Next(ctx)
		if err != nil {
			break
		}
	}
	cerr := c.conn.Close()
	if errors.Is(err, sink.ErrClosed) && !errors.Is(err, sink.ErrUnflushed) {
		return cerr
	}
	return err
}
