// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the player over a small JSON control API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/livectl/internal/api/middleware"
	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/health"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/playback"
	"github.com/ManuGH/livectl/internal/session"
	"github.com/ManuGH/livectl/internal/state"
)

// DefaultActionTimeout bounds how long a control request waits for its
// change-over to resolve.
const DefaultActionTimeout = 15 * time.Second

// Player is the part of player.Player the API drives.
type Player interface {
	State() playback.State
	Snapshot() state.Snapshot
	Protocol() driver.Protocol
	CurrentProblem() string
	Play(ctx context.Context) error
	Stop()
	Refresh()
	WindBy(d time.Duration, done func(session.Completion))
	WindTo(t time.Time, done func(session.Completion))
	WindToLive(done func(session.Completion))
	SkipForward(typ *metadata.ItemType, done func(session.Completion))
	SkipBackward(typ *metadata.ItemType, done func(session.Completion))
	SwapItem(done func(session.Completion))
	SwapService(id string, done func(session.Completion))
	MaxBitRate(kbps int32)
}

// Config configures the server.
type Config struct {
	Listen string
	// RateLimit is requests per minute per client IP and endpoint; 0 disables limiting.
	RateLimit      int
	TracingService string
	ActionTimeout  time.Duration
	Version        string
	// Health backs /healthz and /readyz; nil serves a manager with no checks.
	Health *health.Manager
}

// Server serves the control API.
type Server struct {
	cfg    Config
	player Player
	logger zerolog.Logger
	router http.Handler
	state  singleflight.Group
}

// New builds a server for p.
func New(cfg Config, p Player) *Server {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = DefaultActionTimeout
	}
	if cfg.Health == nil {
		cfg.Health = health.NewManager(cfg.Version)
	}
	s := &Server{
		cfg:    cfg,
		player: p,
		logger: xglog.WithComponent("api"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.cfg.Health.ServeHealth)
	r.Get("/readyz", s.cfg.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestLimit: s.cfg.RateLimit,
				WindowSize:   time.Minute,
				PerEndpoint:  true,
			}))
		}
		r.Get("/state", s.handleState)
		r.Post("/play", s.handlePlay)
		r.Post("/stop", s.handleStop)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/wind", s.handleWind)
		r.Post("/skip/{direction}", s.handleSkip)
		r.Post("/swap/item", s.handleSwapItem)
		r.Post("/swap/service", s.handleSwapService)
		r.Post("/bitrate", s.handleBitRate)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str(xglog.FieldEvent, "api.listening").
			Str("addr", s.cfg.Listen).
			Msg("control API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		s.logger.Info().Str(xglog.FieldEvent, "api.shutdown").Msg("shutting down control API")
		return srv.Shutdown(shutdownCtx)
	}
}
