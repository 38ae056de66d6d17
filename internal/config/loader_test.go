// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/livectl/internal/testutil"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimal = `
endpoint:
  uri: http://radio.example.com/live
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), minimal)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	want := Defaults()
	want.Endpoint.URI = "http://radio.example.com/live"
	assert.Equal(t, want, cfg)
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
endpoint:
  uri: https://radio.example.com/live
  protocol: native
  timeout: 2s
  maxRetries: 4
control:
  changeOverTimeout: 3s
  maxBitRateKbps: 96
api:
  listen: 127.0.0.1:9000
log:
  level: debug
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "native", cfg.Endpoint.Protocol)
	assert.Equal(t, 2*time.Second, cfg.Endpoint.Timeout)
	assert.Equal(t, 4, cfg.Endpoint.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.Control.ChangeOverTimeout)
	assert.Equal(t, int32(96), cfg.Control.MaxBitRateKbps)
	assert.Equal(t, 5*time.Second, cfg.Control.RefreshInterval, "unset keys keep defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
endpoint:
  uri: http://radio.example.com/live
  protocol: icy
`)
	t.Setenv(EnvEndpoint, "http://other.example.com/stream")
	t.Setenv(EnvProtocol, "NATIVE")
	t.Setenv(EnvChangeOverTimeout, "750ms")
	t.Setenv(EnvMaxBitRateKbps, "128")
	t.Setenv(EnvTelemetryEnabled, "yes")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://other.example.com/stream", cfg.Endpoint.URI)
	assert.Equal(t, "native", cfg.Endpoint.Protocol)
	assert.Equal(t, 750*time.Millisecond, cfg.Control.ChangeOverTimeout)
	assert.Equal(t, int32(128), cfg.Control.MaxBitRateKbps)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv(EnvEndpoint, "http://radio.example.com/live")
	t.Setenv(EnvRefreshInterval, "soon")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Control.RefreshInterval)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), minimal+"  bogus: true\n")

	_, err := NewLoader(path).Load()
	require.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoadRejectsTrailingDocuments(t *testing.T) {
	path := writeConfig(t, t.TempDir(), minimal+"---\nlog:\n  level: debug\n")

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMultipleDocuments)
}

func TestLoadRejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path).Load()
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadRequiresEndpoint(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "")

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint.uri")
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := NewLoader(testutil.RepoPath(t, "config.example.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Endpoint.Protocol)
	assert.Equal(t, int32(128), cfg.Control.MaxBitRateKbps)
	assert.False(t, cfg.Telemetry.Enabled)
}
