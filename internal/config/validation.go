// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/rs/zerolog"

	"github.com/ManuGH/livectl/internal/bitrate"
	"github.com/ManuGH/livectl/internal/validate"
)

// Validate checks a configuration using the validate package.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.URL("endpoint.uri", cfg.Endpoint.URI, []string{"http", "https"})
	v.OneOf("endpoint.protocol", cfg.Endpoint.Protocol, []string{"auto", "icy", "native"})
	v.Positive("endpoint.timeout", cfg.Endpoint.Timeout)
	v.Range("endpoint.maxRetries", cfg.Endpoint.MaxRetries, 0, 10)
	if cfg.Endpoint.RateLimit < 0 {
		v.AddError("endpoint.rateLimit", "must not be negative", cfg.Endpoint.RateLimit)
	}
	v.Range("endpoint.rateBurst", cfg.Endpoint.RateBurst, 0, 1000)

	v.Positive("control.changeOverTimeout", cfg.Control.ChangeOverTimeout)
	v.Positive("control.refreshInterval", cfg.Control.RefreshInterval)
	v.Positive("control.problemGrace", cfg.Control.ProblemGrace)
	v.Range("control.maxBitRateKbps", int(cfg.Control.MaxBitRateKbps), 0, int(bitrate.Max()/1000))
	v.Range("control.handoffCapacity", cfg.Control.HandoffCapacity, 1, 1024)

	v.ListenAddr("api.listen", cfg.API.Listen)
	v.Range("api.rateLimit", cfg.API.RateLimit, 0, 100000)

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil || cfg.Log.Level == "" {
		v.AddError("log.level", "unknown log level", cfg.Log.Level)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		if cfg.Telemetry.Endpoint == "" {
			v.AddError("telemetry.endpoint", "required when telemetry is enabled", "")
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.samplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}
