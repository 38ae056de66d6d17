// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingPlayer is returned when an app is created without a player.
	ErrMissingPlayer = errors.New("player is required")

	// ErrMissingAPIServer is returned when an app is created without an API server.
	ErrMissingAPIServer = errors.New("API server is required")
)
