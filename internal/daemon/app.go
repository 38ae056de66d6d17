// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the long-lived runtime: the control API, config
// reloads and their effect on the player.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/livectl/internal/config"
	xglog "github.com/ManuGH/livectl/internal/log"
)

// Controller is the part of the player a config reload touches.
type Controller interface {
	MaxBitRate(kbps int32)
}

// Server is the control API lifecycle.
type Server interface {
	ListenAndServe(ctx context.Context) error
}

// App runs the API server, the config watcher and the SIGHUP handler until
// its context ends.
type App struct {
	logger       zerolog.Logger
	holder       *config.Holder
	player       Controller
	server       Server
	reloadSignal os.Signal

	applyCh chan config.AppConfig
	applied config.AppConfig
}

// NewApp creates an app. holder may be nil when reloads are not wanted.
func NewApp(holder *config.Holder, p Controller, srv Server) *App {
	a := &App{
		logger:       xglog.WithComponent("daemon"),
		holder:       holder,
		player:       p,
		server:       srv,
		reloadSignal: syscall.SIGHUP,
	}
	if holder != nil {
		a.applied = holder.Get()
		a.applyCh = make(chan config.AppConfig, 1)
		holder.RegisterListener(a.applyCh)
	}
	return a
}

// Run blocks until ctx is cancelled or the API server fails.
func (a *App) Run(ctx context.Context) error {
	if a.player == nil {
		return ErrMissingPlayer
	}
	if a.server == nil {
		return ErrMissingAPIServer
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case next := <-a.applyCh:
					a.apply(a.applied, next)
					a.applied = next
				}
			}
		})

		// The watcher is best-effort; a failure leaves SIGHUP reloads working.
		g.Go(func() error {
			if err := a.holder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, a.reloadSignal)
				defer signal.Stop(hup)
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hup:
						a.logger.Info().
							Str(xglog.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						_ = a.holder.Reload(ctx)
					}
				}
			})
		}
	}

	g.Go(func() error {
		return a.server.ListenAndServe(ctx)
	})

	return g.Wait()
}

// apply pushes the reloadable keys into the running system.
func (a *App) apply(old, next config.AppConfig) {
	if old.Log.Level != next.Log.Level {
		if err := xglog.SetLevel(next.Log.Level); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.apply_failed").Msg("log level not applied")
		}
	}
	if old.Control.MaxBitRateKbps != next.Control.MaxBitRateKbps && next.Control.MaxBitRateKbps > 0 {
		a.player.MaxBitRate(next.Control.MaxBitRateKbps)
	}
	a.logger.Info().Str(xglog.FieldEvent, "config.applied").Msg("configuration applied")
}
