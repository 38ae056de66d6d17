// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/livectl/internal/log"
)

// Environment variables recognised on top of the file.
const (
	EnvEndpoint          = "LIVECTL_ENDPOINT"
	EnvProtocol          = "LIVECTL_PROTOCOL"
	EnvAPIListen         = "LIVECTL_API_LISTEN"
	EnvLogLevel          = "LIVECTL_LOG_LEVEL"
	EnvChangeOverTimeout = "LIVECTL_CHANGEOVER_TIMEOUT"
	EnvRefreshInterval   = "LIVECTL_REFRESH_INTERVAL"
	EnvMaxBitRateKbps    = "LIVECTL_MAX_BITRATE_KBPS"
	EnvTelemetryEnabled  = "LIVECTL_TELEMETRY_ENABLED"
	EnvTelemetryEndpoint = "LIVECTL_TELEMETRY_ENDPOINT"
)

func mergeEnv(cfg *AppConfig) {
	cfg.Endpoint.URI = ParseString(EnvEndpoint, cfg.Endpoint.URI)
	cfg.Endpoint.Protocol = strings.ToLower(ParseString(EnvProtocol, cfg.Endpoint.Protocol))
	cfg.API.Listen = ParseString(EnvAPIListen, cfg.API.Listen)
	cfg.Log.Level = ParseString(EnvLogLevel, cfg.Log.Level)
	cfg.Control.ChangeOverTimeout = ParseDuration(EnvChangeOverTimeout, cfg.Control.ChangeOverTimeout)
	cfg.Control.RefreshInterval = ParseDuration(EnvRefreshInterval, cfg.Control.RefreshInterval)
	cfg.Control.MaxBitRateKbps = int32(ParseInt(EnvMaxBitRateKbps, int(cfg.Control.MaxBitRateKbps))) // #nosec G115 -- range checked by Validate
	cfg.Telemetry.Enabled = ParseBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
}

func envLogger() zerolog.Logger {
	return log.WithComponent("config")
}

// ParseString reads a string from the environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	logger := envLogger()
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	logger.Debug().Str("key", key).Str("value", value).Str("source", "environment").Msg("using environment variable")
	return value
}

// ParseInt reads an integer from the environment. Invalid values fall back
// to defaultValue with a warning.
func ParseInt(key string, defaultValue int) int {
	logger := envLogger()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseDuration reads a Go duration ("5s") from the environment.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := envLogger()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}

// ParseBool reads "true", "false", "1", "0", "yes" or "no" from the environment.
func ParseBool(key string, defaultValue bool) bool {
	logger := envLogger()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Bool("default", defaultValue).
		Msg("invalid boolean in environment variable, using default")
	return defaultValue
}
