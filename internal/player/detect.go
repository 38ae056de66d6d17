// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"context"
	"errors"

	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/driver/icy"
	"github.com/ManuGH/livectl/internal/driver/native"
	xglog "github.com/ManuGH/livectl/internal/log"
)

// DetectDriver builds the driver for endpoint. An explicit protocol wins.
// With ProtocolAuto the endpoint is probed for a native session; anything
// short of a valid session answer falls back to inline metadata. A probed
// native driver is returned connected.
func DetectDriver(ctx context.Context, endpoint string, protocol driver.Protocol, opts native.Options) (driver.Driver, error) {
	if err := driver.ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	switch protocol {
	case driver.ProtocolICY:
		return icy.New(endpoint), nil
	case driver.ProtocolNative:
		return native.New(endpoint, opts), nil
	}

	logger := xglog.WithComponent("player")
	probe := native.New(endpoint, opts)
	err := probe.Connect(ctx)
	if err == nil {
		logger.Info().
			Str(xglog.FieldEvent, "detect.native").
			Str(xglog.FieldBaseURL, endpoint).
			Msg("endpoint speaks the native control protocol")
		return probe, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	logger.Info().Err(err).
		Str(xglog.FieldEvent, "detect.icy").
		Str(xglog.FieldBaseURL, endpoint).
		Msg("no native session, using inline metadata")
	return icy.New(endpoint), nil
}
