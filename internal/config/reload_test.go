// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHolder(t *testing.T, body string) (*Holder, string) {
	t.Helper()
	path := writeConfig(t, t.TempDir(), body)
	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	return NewHolder(cfg, loader), path
}

func TestReloadSwapsAndNotifies(t *testing.T) {
	h, path := newHolder(t, minimal)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte(minimal+"log:\n  level: debug\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, "debug", h.Get().Log.Level)
	select {
	case got := <-ch:
		assert.Equal(t, "debug", got.Log.Level)
	default:
		t.Fatal("listener not notified")
	}
}

func TestReloadKeepsConfigOnInvalidFile(t *testing.T) {
	h, path := newHolder(t, minimal)
	before := h.Get()

	require.NoError(t, os.WriteFile(path, []byte(minimal+"control:\n  changeOverTimeout: -1s\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, before, h.Get())

	require.NoError(t, os.WriteFile(path, []byte(minimal+"nope: 1\n"), 0o600))
	require.ErrorIs(t, h.Reload(context.Background()), ErrUnknownConfigField)
	assert.Equal(t, before, h.Get())
}

func TestListenerNeverBlocksReload(t *testing.T) {
	h, _ := newHolder(t, minimal)
	h.RegisterListener(make(chan AppConfig))

	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	h, path := newHolder(t, minimal)
	h.debounce = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchErr := make(chan error, 1)
	go func() { watchErr <- h.Watch(ctx) }()
	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(minimal+"control:\n  maxBitRateKbps: 64\n"), 0o600))
	require.Eventually(t, func() bool {
		return h.Get().Control.MaxBitRateKbps == 64
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-watchErr)
}

func TestWatchWithoutFile(t *testing.T) {
	t.Setenv(EnvEndpoint, "http://radio.example.com/live")
	loader := NewLoader("")
	cfg, err := loader.Load()
	require.NoError(t, err)

	require.NoError(t, NewHolder(cfg, loader).Watch(context.Background()))
}
