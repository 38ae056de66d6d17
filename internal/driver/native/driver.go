// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package native drives sessions that speak the JSON control protocol.
package native

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/livectl/internal/driver"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/state"
)

// Driver implements every control capability over the native protocol.
type Driver struct {
	endpoint string
	client   *Client
	cache    *state.Cache
	logger   zerolog.Logger

	mu        sync.Mutex
	connected bool
	sessionID string
	baseURL   string
	inline    *metadata.Node
}

var (
	_ driver.Driver         = (*Driver)(nil)
	_ driver.TimeShifter    = (*Driver)(nil)
	_ driver.ContentSwapper = (*Driver)(nil)
	_ driver.BitRateLimiter = (*Driver)(nil)
	_ driver.Refresher      = (*Driver)(nil)
	_ driver.Reconnector    = (*Driver)(nil)
)

// New returns a driver for the session endpoint.
func New(endpoint string, opts Options) *Driver {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return &Driver{
		endpoint: endpoint,
		client:   NewClient(opts),
		cache:    state.NewCache(endpoint),
		logger:   xglog.WithComponent("driver.native"),
		baseURL:  endpoint,
	}
}

// Protocol implements driver.Driver.
func (d *Driver) Protocol() driver.Protocol { return driver.ProtocolNative }

// State implements driver.Driver.
func (d *Driver) State() *state.Cache { return d.cache }

// Connected implements driver.Driver.
func (d *Driver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// SessionID returns the id the server assigned, empty before Connect.
func (d *Driver) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Connect creates the session. A server that refuses to create one makes
// the endpoint invalid.
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		return nil
	}
	if err := driver.ValidateEndpoint(d.endpoint); err != nil {
		return err
	}

	env, err := d.client.Do(ctx, request{method: http.MethodPost, base: d.baseURL, path: pathCreate, idempotent: true})
	if errors.Is(err, driver.ErrActionRejected) {
		return &driver.Error{Kind: driver.ErrInvalidSession, Op: "connect", Message: driver.Message(err), Err: err}
	}
	if err != nil {
		return err
	}
	if err := d.applyLocked(env); err != nil {
		return err
	}
	if d.sessionID == "" {
		return &driver.Error{Kind: driver.ErrInvalidSession, Op: "connect", Message: "server did not assign a session"}
	}
	d.connected = true
	d.logger.Info().
		Str(xglog.FieldEvent, "driver.connected").
		Str(xglog.FieldSessionID, d.sessionID).
		Str(xglog.FieldBaseURL, d.baseURL).
		Msg("native session created")
	return nil
}

// Disconnect closes the session on the server. A failed close is logged;
// the local session is gone either way.
func (d *Driver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil
	}
	d.connected = false
	_, err := d.client.Do(ctx, request{
		method: http.MethodPost,
		base:   d.baseURL,
		path:   pathClose,
		params: url.Values{"session-id": {d.sessionID}},
	})
	if err != nil {
		d.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "driver.close_failed").
			Str(xglog.FieldSessionID, d.sessionID).
			Msg("closing native session failed")
	}
	d.logger.Info().
		Str(xglog.FieldEvent, "driver.disconnected").
		Str(xglog.FieldSessionID, d.sessionID).
		Msg("native session closed")
	return nil
}

// Reconnect drops the current session and creates a new one at the
// original endpoint.
func (d *Driver) Reconnect(ctx context.Context) error {
	if err := d.Disconnect(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	d.baseURL = d.endpoint
	d.sessionID = ""
	d.mu.Unlock()
	d.cache.SetBaseURL(d.endpoint)
	return d.Connect(ctx)
}

// Refresh implements driver.Refresher.
func (d *Driver) Refresh(ctx context.Context) error {
	return d.call(ctx, "info", http.MethodGet, pathInfo, nil, true)
}

// WindBy moves the position by d; negative values go back in time.
func (d *Driver) WindBy(ctx context.Context, by time.Duration) error {
	return d.call(ctx, "wind_by", http.MethodPost, pathWind,
		url.Values{"duration": {strconv.FormatInt(by.Milliseconds(), 10)}}, false)
}

// WindTo moves the position to wall-clock time t.
func (d *Driver) WindTo(ctx context.Context, t time.Time) error {
	return d.call(ctx, "wind_to", http.MethodPost, pathWind,
		url.Values{"ts": {strconv.FormatInt(t.UnixMilli(), 10)}}, true)
}

// WindToLive returns to the live position.
func (d *Driver) WindToLive(ctx context.Context) error {
	return d.call(ctx, "wind_to_live", http.MethodPost, pathWindToLive, nil, true)
}

// SkipForward implements driver.TimeShifter.
func (d *Driver) SkipForward(ctx context.Context, typ *metadata.ItemType) error {
	return d.call(ctx, "skip_forward", http.MethodPost, pathSkipForward, itemTypeParams(typ), false)
}

// SkipBackward implements driver.TimeShifter.
func (d *Driver) SkipBackward(ctx context.Context, typ *metadata.ItemType) error {
	return d.call(ctx, "skip_backward", http.MethodPost, pathSkipBack, itemTypeParams(typ), false)
}

// SwapItem replaces the current item with an alternative.
func (d *Driver) SwapItem(ctx context.Context) error {
	return d.call(ctx, "swap_item", http.MethodPost, pathSwapItem, url.Values{"mode": {"end2end"}}, false)
}

// SwapService switches the active service of the bouquet.
func (d *Driver) SwapService(ctx context.Context, serviceID string) error {
	return d.call(ctx, "swap_service", http.MethodPost, pathSwapService, url.Values{"service-id": {serviceID}}, true)
}

// LimitBitRate sets the ceiling; bps must already be a ladder tier.
func (d *Driver) LimitBitRate(ctx context.Context, bps int32) error {
	return d.call(ctx, "max_bit_rate", http.MethodPost, pathMaxBitRate,
		url.Values{"value": {strconv.FormatInt(int64(bps), 10)}}, true)
}

// SetInline records the metadata read from the stream. The next state
// update puts it in front of the protocol metadata so that the server's
// view wins and inline tags only fill gaps.
func (d *Driver) SetInline(n *metadata.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inline = n
}

func itemTypeParams(typ *metadata.ItemType) url.Values {
	if typ == nil {
		return nil
	}
	return url.Values{"item-type": {string(*typ)}}
}

func (d *Driver) call(ctx context.Context, op, method, path string, params url.Values, idempotent bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return &driver.Error{Kind: driver.ErrNotConnected, Op: op, Message: "no session"}
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("session-id", d.sessionID)

	env, err := d.client.Do(ctx, request{method: method, base: d.baseURL, path: path, params: params, idempotent: idempotent})
	if env != nil {
		if applyErr := d.applyLocked(env); applyErr != nil && err == nil {
			err = applyErr
		}
	}
	if err != nil {
		d.logger.Debug().Err(err).
			Str(xglog.FieldEvent, "driver.action_failed").
			Str(xglog.FieldAction, op).
			Msg("control request failed")
		return err
	}
	return nil
}

// applyLocked copies the session object of env into the cache.
func (d *Driver) applyLocked(env *Envelope) error {
	if len(env.Object) == 0 || string(env.Object) == "null" {
		return nil
	}
	var s Session
	if err := json.Unmarshal(env.Object, &s); err != nil {
		return &driver.Error{Kind: driver.ErrTransportFailure, Op: "decode", Message: "control server sent an unreadable session", Err: err}
	}

	if s.ID != "" {
		d.sessionID = s.ID
	}
	if s.BaseURL != "" && s.BaseURL != d.baseURL {
		d.logger.Debug().
			Str(xglog.FieldEvent, "driver.base_url_moved").
			Str(xglog.FieldBaseURL, s.BaseURL).
			Msg("session moved")
		d.baseURL = strings.TrimRight(s.BaseURL, "/")
		d.cache.SetBaseURL(d.baseURL)
	}
	if s.PlaybackURI != "" {
		d.cache.SetPlaybackURI(s.PlaybackURI)
	}
	if p := s.Playout; p != nil {
		if p.MaxBitRate != nil {
			d.cache.SetMaxBitRate(*p.MaxBitRate)
		}
		if p.CurrentBitRate != nil {
			d.cache.SetCurrentBitRate(p.CurrentBitRate)
		}
		if p.OffsetToLive != nil {
			off := time.Duration(*p.OffsetToLive) * time.Millisecond
			d.cache.SetOffsetToLive(&off)
		}
		if p.SwapsLeft != nil {
			d.cache.SetSwapsLeft(*p.SwapsLeft)
		}
	}
	if s.Bouquet != nil {
		d.cache.SetBouquet(s.Bouquet.toBouquet())
	}
	if s.Metadata != nil {
		head := s.Metadata.toNode()
		if d.inline != nil && d.inline.DelegateTo(head) == nil {
			head = d.inline
		}
		d.cache.SetMetadata(head)
	}
	return nil
}
