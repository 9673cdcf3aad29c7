package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/framesink/internal/admin"
	"github.com/danmuck/framesink/internal/config"
	"github.com/danmuck/framesink/internal/observability"
	"github.com/danmuck/framesink/internal/relay"
	"github.com/danmuck/framesink/internal/transport"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (.toml or .yaml); defaults apply when empty")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("sinkctl", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger, nil)
}

// serve runs until ctx is done or a listener fails. When bound is non-nil it
// receives the relay and admin listen addresses once both are up.
func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger, bound chan<- [2]string) error {
	codec, err := relay.ParseCodec(cfg.Relay.Compression)
	if err != nil {
		return err
	}
	ep, err := cfg.ListenEndpoint()
	if err != nil {
		return err
	}
	ln, err := transport.Listen(ep)
	if err != nil {
		return err
	}

	srv := relay.NewServer(cfg.ID,
		relay.WithLogger(logger),
		relay.WithCodec(codec),
		relay.WithSinkLimit(cfg.Sink.Limit),
		relay.WithScratchSize(cfg.Sink.ScratchSize),
		relay.WithRingSize(cfg.Sink.RingSize),
	)
	errs := make(chan error, 2)
	go func() { errs <- srv.Serve(ln) }()

	var api *admin.Server
	adminAddr := ""
	if cfg.Admin.Addr != "" {
		adminLn, err := net.Listen("tcp", cfg.Admin.Addr)
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return err
		}
		adminAddr = adminLn.Addr().String()
		api = admin.New(admin.Options{
			Node:        cfg.ID,
			Sessions:    srv,
			Ready:       srv.Serving,
			CorsOrigins: cfg.Admin.CorsOrigins,
			Token:       cfg.Admin.Token,
			Logger:      logger,
		})
		go func() { errs <- api.Serve(adminLn) }()
		logger.Info().Str("addr", adminAddr).Msg("admin: listening")
	}
	logger.Info().
		Str("id", cfg.ID).
		Str("transport", string(ep.Kind)).
		Str("addr", ln.Addr().String()).
		Msg("sinkctl: relay started")
	if bound != nil {
		bound <- [2]string{ln.Addr().String(), adminAddr}
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if api != nil {
		if err := api.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("admin: shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("sinkctl: relay shutdown")
	}
	logger.Info().Msg("sinkctl: stopped")
	if errors.Is(runErr, relay.ErrServerClosed) {
		return nil
	}
	return runErr
}
