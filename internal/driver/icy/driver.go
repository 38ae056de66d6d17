// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package icy is the driver for plain streams that carry metadata inline.
// It offers no control capabilities.
package icy

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/livectl/internal/driver"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/state"
)

// Driver connects to an inline-metadata stream.
type Driver struct {
	uri    string
	cache  *state.Cache
	logger zerolog.Logger

	mu        sync.Mutex
	connected bool
}

var _ driver.Driver = (*Driver)(nil)

// New returns a driver for uri. Nothing is validated until Connect.
func New(uri string) *Driver {
	uri = strings.TrimSpace(uri)
	return &Driver{
		uri:    uri,
		cache:  state.NewCache(uri),
		logger: xglog.WithComponent("driver.icy"),
	}
}

// Protocol implements driver.Driver.
func (d *Driver) Protocol() driver.Protocol { return driver.ProtocolICY }

// State implements driver.Driver.
func (d *Driver) State() *state.Cache { return d.cache }

// Connect validates the endpoint and records it as the playback URI.
func (d *Driver) Connect(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		return nil
	}
	if err := driver.ValidateEndpoint(d.uri); err != nil {
		return err
	}
	d.cache.SetBaseURL(d.uri)
	d.cache.SetPlaybackURI(d.uri)
	d.connected = true
	d.logger.Info().
		Str(xglog.FieldEvent, "driver.connected").
		Str(xglog.FieldBaseURL, d.uri).
		Msg("icy session ready")
	return nil
}

// Disconnect marks the session closed. There is nothing to tell the server.
func (d *Driver) Disconnect(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil
	}
	d.connected = false
	d.logger.Info().Str(xglog.FieldEvent, "driver.disconnected").Msg("icy session closed")
	return nil
}

// Connected implements driver.Driver.
func (d *Driver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}
