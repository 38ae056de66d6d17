// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads livectl configuration from YAML and the environment.
// Precedence is ENV > file > defaults.
package config

import "time"

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Control   ControlConfig   `yaml:"control"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EndpointConfig describes the stream and its control server.
type EndpointConfig struct {
	URI      string        `yaml:"uri"`
	Protocol string        `yaml:"protocol"`
	Timeout  time.Duration `yaml:"timeout"`
	// RateLimit is control requests per second.
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
	// MaxRetries of 0 uses the client default.
	MaxRetries int `yaml:"maxRetries"`
}

// ControlConfig tunes the session.
type ControlConfig struct {
	ChangeOverTimeout time.Duration `yaml:"changeOverTimeout"`
	RefreshInterval   time.Duration `yaml:"refreshInterval"`
	ProblemGrace      time.Duration `yaml:"problemGrace"`
	// MaxBitRateKbps is the initial ceiling; 0 leaves the server default.
	MaxBitRateKbps  int32 `yaml:"maxBitRateKbps"`
	HandoffCapacity int   `yaml:"handoffCapacity"`
}

// APIConfig configures the HTTP control surface.
type APIConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is requests per minute per client; 0 disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns the configuration used when nothing overrides a key.
func Defaults() AppConfig {
	return AppConfig{
		Endpoint: EndpointConfig{
			Protocol:  "auto",
			Timeout:   5 * time.Second,
			RateLimit: 10,
			RateBurst: 20,
		},
		Control: ControlConfig{
			ChangeOverTimeout: 10 * time.Second,
			RefreshInterval:   5 * time.Second,
			ProblemGrace:      5 * time.Second,
			HandoffCapacity:   16,
		},
		API: APIConfig{
			Listen:    ":8089",
			RateLimit: 120,
		},
		Log: LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
