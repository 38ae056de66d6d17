// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ManuGH/livectl/internal/api"
	"github.com/ManuGH/livectl/internal/config"
	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/driver/native"
	"github.com/ManuGH/livectl/internal/health"
	"github.com/ManuGH/livectl/internal/pipeline/icystream"
	"github.com/ManuGH/livectl/internal/player"
	"github.com/ManuGH/livectl/internal/telemetry"
)

// PlayerConfig maps the configuration onto player options.
func PlayerConfig(cfg config.AppConfig, version string) (player.Config, error) {
	protocol, err := driver.ParseProtocol(cfg.Endpoint.Protocol)
	if err != nil {
		return player.Config{}, fmt.Errorf("endpoint.protocol: %w", err)
	}
	return player.Config{
		Endpoint: cfg.Endpoint.URI,
		Protocol: protocol,
		Native: native.Options{
			Timeout:        cfg.Endpoint.Timeout,
			MaxRetries:     cfg.Endpoint.MaxRetries,
			UserAgent:      "livectl/" + version,
			RateLimit:      rate.Limit(cfg.Endpoint.RateLimit),
			RateLimitBurst: cfg.Endpoint.RateBurst,
		},
		ChangeOverTimeout: cfg.Control.ChangeOverTimeout,
		RefreshInterval:   cfg.Control.RefreshInterval,
		ProblemGrace:      cfg.Control.ProblemGrace,
		HandoffCapacity:   cfg.Control.HandoffCapacity,
		MaxBitRateKbps:    cfg.Control.MaxBitRateKbps,
	}, nil
}

// TelemetryConfig maps the configuration onto tracing options.
func TelemetryConfig(cfg config.AppConfig, version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "livectl",
		ServiceVersion: version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

// Bootstrap opens the player over an ICY stream pipeline and builds the API
// server around it, with the session as its readiness check. The caller closes the returned player.
func Bootstrap(ctx context.Context, cfg config.AppConfig, version string, listener any) (*player.Player, *api.Server, error) {
	pcfg, err := PlayerConfig(cfg, version)
	if err != nil {
		return nil, nil, err
	}
	pipe := icystream.New(icystream.Options{
		StallTimeout: cfg.Control.ProblemGrace,
		UserAgent:    "livectl/" + version,
	})
	p, err := player.Open(ctx, pcfg, pipe, listener)
	if err != nil {
		return nil, nil, fmt.Errorf("open player: %w", err)
	}

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewSessionChecker(p))

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = "livectl-api"
	}
	srv := api.New(api.Config{
		Listen:         cfg.API.Listen,
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracing,
		Version:        version,
		Health:         hm,
	}, p)
	return p, srv, nil
}
