// Package admin serves the HTTP health, readiness, metrics and session
// endpoints of a relay node.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/framesink/internal/auth"
	"github.com/danmuck/framesink/internal/observability"
	"github.com/danmuck/framesink/internal/relay"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

// SessionLister reports the sessions a relay currently holds.
type SessionLister interface {
	Sessions() []relay.SessionInfo
}

// Options configures an admin Server.
type Options struct {
	Node     string
	Sessions SessionLister
	// Ready reports readiness; nil means always ready.
	Ready       func() bool
	CorsOrigins []string
	// Token, when set, is required as a bearer token on /metrics and
	// /sessions. /health and /ready stay open for probes.
	Token  string
	Logger zerolog.Logger
}

type Server struct {
	node     string
	started  time.Time
	sessions SessionLister
	ready    func() bool
	token    string
	router   *gin.Engine
	http     *http.Server
}

func New(opts Options) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(opts.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.Node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	ready := opts.Ready
	if ready == nil {
		ready = func() bool { return true }
	}
	s := &Server{
		node:     opts.Node,
		started:  time.Now(),
		sessions: opts.Sessions,
		ready:    ready,
		token:    opts.Token,
		router:   r,
	}
	s.http = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"node":    s.node,
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.started).String(),
			"node":    s.node,
			"version": version,
		})
	})

	private := s.router.Group("/")
	if s.token != "" {
		private.Use(auth.Require(auth.StaticToken{Token: s.token}))
	}
	private.GET("/metrics", gin.WrapH(promhttp.Handler()))

	private.GET("/sessions", func(c *gin.Context) {
		list := []relay.SessionInfo{}
		if s.sessions != nil {
			list = append(list, s.sessions.Sessions()...)
		}
		c.JSON(http.StatusOK, gin.H{
			"node":     s.node,
			"count":    len(list),
			"sessions": list,
		})
	})
}

// Serve runs the admin API on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
