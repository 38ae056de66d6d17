// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package icy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/livectl/internal/driver"
)

func TestConnectIsIdempotent(t *testing.T) {
	d := New("http://radio.example.com/stream.mp3")
	ctx := context.Background()

	require.NoError(t, d.Connect(ctx))
	require.NoError(t, d.Connect(ctx))
	assert.True(t, d.Connected())
	assert.Equal(t, "http://radio.example.com/stream.mp3", d.State().Snapshot().PlaybackURI)

	require.NoError(t, d.Disconnect(ctx))
	require.NoError(t, d.Disconnect(ctx))
	assert.False(t, d.Connected())
}

func TestConnectRejectsMalformedEndpoint(t *testing.T) {
	for _, uri := range []string{"", "ftp://radio.example.com/x", "http://", "::nope"} {
		d := New(uri)
		err := d.Connect(context.Background())
		require.ErrorIs(t, err, driver.ErrInvalidSession, uri)
		assert.NotEmpty(t, driver.Message(err))
		assert.False(t, d.Connected())
	}
}

func TestHasNoControlCapabilities(t *testing.T) {
	var d driver.Driver = New("http://radio.example.com/")
	_, ok := d.(driver.TimeShifter)
	assert.False(t, ok)
	_, ok = d.(driver.ContentSwapper)
	assert.False(t, ok)
	_, ok = d.(driver.BitRateLimiter)
	assert.False(t, ok)
	assert.Equal(t, driver.ProtocolICY, d.Protocol())
}
