// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package driver defines what the session needs from a protocol adapter.
//
// A Driver always connects, disconnects and owns the session's state cache.
// Control capabilities are optional interfaces; a session checks for them
// with a type assertion and rejects the action up front when one is missing.
// Every capability call returns nil when the server accepted the request.
// Acceptance does not mean the change is audible yet; the effect shows up
// later as a raised facet flag in the state cache.
package driver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/state"
)

// Protocol names the wire protocol a driver speaks.
type Protocol string

const (
	ProtocolAuto   Protocol = "auto"
	ProtocolICY    Protocol = "icy"
	ProtocolNative Protocol = "native"
)

// ParseProtocol accepts "auto", "icy" and "native", case-insensitively.
func ParseProtocol(raw string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return ProtocolAuto, nil
	case ProtocolAuto, ProtocolICY, ProtocolNative:
		return p, nil
	default:
		return "", fmt.Errorf("unknown protocol %q (supported: auto, icy, native)", raw)
	}
}

// Driver is the part every protocol adapter implements.
// Connect and Disconnect are idempotent.
type Driver interface {
	Protocol() Protocol
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected() bool
	State() *state.Cache
}

// TimeShifter moves the listening position inside the live window.
type TimeShifter interface {
	WindBy(ctx context.Context, d time.Duration) error
	WindTo(ctx context.Context, t time.Time) error
	WindToLive(ctx context.Context) error
	// SkipForward and SkipBackward jump to the adjacent item. A nil type
	// means any item.
	SkipForward(ctx context.Context, typ *metadata.ItemType) error
	SkipBackward(ctx context.Context, typ *metadata.ItemType) error
}

// ContentSwapper replaces content in place.
type ContentSwapper interface {
	SwapItem(ctx context.Context) error
	SwapService(ctx context.Context, serviceID string) error
}

// BitRateLimiter sets the bit-rate ceiling. bps is already quantized.
type BitRateLimiter interface {
	LimitBitRate(ctx context.Context, bps int32) error
}

// Refresher pulls the full session state from the server.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Reconnector re-creates the session against the original endpoint.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// ValidateEndpoint reports ErrInvalidSession unless raw is an absolute
// http(s) URL with a host.
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &Error{Kind: ErrInvalidSession, Op: "connect", Message: "malformed stream address", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &Error{
			Kind:    ErrInvalidSession,
			Op:      "connect",
			Message: fmt.Sprintf("unsupported stream scheme %q", u.Scheme),
		}
	}
	if u.Host == "" {
		return &Error{Kind: ErrInvalidSession, Op: "connect", Message: "stream address has no host"}
	}
	return nil
}
