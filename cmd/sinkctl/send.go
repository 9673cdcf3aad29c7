package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/framesink/internal/config"
	"github.com/danmuck/framesink/internal/observability"
	"github.com/danmuck/framesink/internal/relay"
	"github.com/rs/zerolog"
)

func runSend(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (.toml or .yaml); defaults apply when empty")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline for dialing and echoes")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "send: at least one message is required")
		return errUsage
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("sinkctl", cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return send(ctx, cfg, logger, fs.Args(), stdout)
}

// send dials the relay in cfg and writes one echoed line per message.
func send(ctx context.Context, cfg config.Config, logger zerolog.Logger, messages []string, stdout io.Writer) error {
	codec, err := relay.ParseCodec(cfg.Relay.Compression)
	if err != nil {
		return err
	}
	ep, err := cfg.DialEndpoint()
	if err != nil {
		return err
	}
	client, err := relay.Dial(ctx, cfg.ID, relay.DialConfig{
		Endpoint: ep,
		Attempts: uint(cfg.Dial.Attempts),
		Timeout:  cfg.Dial.Timeout(),
		Backoff: relay.Backoff{
			Initial:    cfg.Dial.BackoffInitial(),
			Multiplier: 2.0,
			Max:        cfg.Dial.BackoffMax(),
			Jitter:     cfg.Dial.BackoffJitter,
		},
	},
		relay.WithLogger(logger),
		relay.WithCodec(codec),
		relay.WithSinkLimit(cfg.Sink.Limit),
		relay.WithScratchSize(cfg.Sink.ScratchSize),
		relay.WithRingSize(cfg.Sink.RingSize),
	)
	if err != nil {
		return err
	}

	for _, m := range messages {
		if err := client.Send([]byte(m)); err != nil {
			_ = client.Close(ctx)
			return err
		}
	}
	for range messages {
		echo, err := client.Recv(ctx)
		if err != nil {
			_ = client.Close(ctx)
			return err
		}
		fmt.Fprintln(stdout, string(echo))
	}
	return client.Close(ctx)
}
