// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/livectl/internal/config"
	"github.com/ManuGH/livectl/internal/daemon"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/telemetry"
	"github.com/ManuGH/livectl/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	xglog.Configure(xglog.Config{Service: "livectl", Version: version.Version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(strings.TrimSpace(*configPath))
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", loader.Path()).
			Msg("failed to load configuration")
		return 1
	}
	if err := xglog.SetLevel(cfg.Log.Level); err != nil {
		logger.Warn().Err(err).Msg("invalid log level, keeping default")
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("config_path", loader.Path()).
		Str(xglog.FieldEndpoint, cfg.Endpoint.URI).
		Str(xglog.FieldProtocol, cfg.Endpoint.Protocol).
		Msg("configuration loaded")

	tp, err := telemetry.NewProvider(ctx, daemon.TelemetryConfig(cfg, version.Version))
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "telemetry.init_failed").Msg("failed to initialise tracing")
		return 1
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	p, srv, err := daemon.Bootstrap(ctx, cfg, version.Version, daemon.NewLogListener())
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "bootstrap.failed").Msg("failed to start")
		return 1
	}
	defer p.Close()

	if err := p.Play(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "play.failed").Msg("initial play failed, waiting for API commands")
	}

	app := daemon.NewApp(config.NewHolder(cfg, loader), p, srv)
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return 1
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("shutdown complete")
	return 0
}
