// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/driver/native"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/playback"
	"github.com/ManuGH/livectl/internal/player"
	"github.com/ManuGH/livectl/internal/session"
	"github.com/ManuGH/livectl/internal/state"
)

type fakePlayer struct {
	mu       sync.Mutex
	playErr  error
	outcome  *session.Completion // nil never completes
	windBy   time.Duration
	skipType *metadata.ItemType
	kbps     int32
	service  string
	stopped  int
}

func (f *fakePlayer) State() playback.State      { return playback.StatePlaying }
func (f *fakePlayer) Protocol() driver.Protocol  { return driver.ProtocolNative }
func (f *fakePlayer) CurrentProblem() string     { return "" }
func (f *fakePlayer) Refresh()                   {}
func (f *fakePlayer) Play(context.Context) error { return f.playErr }

func (f *fakePlayer) Snapshot() state.Snapshot {
	offset := 90 * time.Second
	return state.Snapshot{
		PlaybackURI:  "http://radio.example.com/stream",
		SwapsLeft:    2,
		MaxBitRate:   128000,
		OffsetToLive: &offset,
		Bouquet: metadata.Bouquet{
			Primary:  "morning-show",
			Active:   "morning-show",
			Services: []metadata.Service{{Identifier: "morning-show", DisplayName: "Morning Show"}},
		},
		Metadata: &metadata.View{
			DisplayTitle: "Lamb - Gorecki",
			Current:      metadata.Item{DisplayTitle: "Lamb - Gorecki", Artist: "Lamb", Type: metadata.TypeMusic.Ptr()},
		},
	}
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakePlayer) complete(action string, done func(session.Completion)) {
	if f.outcome == nil {
		return
	}
	c := *f.outcome
	c.Action = action
	go done(c)
}

func (f *fakePlayer) WindBy(d time.Duration, done func(session.Completion)) {
	f.mu.Lock()
	f.windBy = d
	f.mu.Unlock()
	f.complete("wind_by", done)
}

func (f *fakePlayer) WindTo(_ time.Time, done func(session.Completion)) { f.complete("wind_to", done) }
func (f *fakePlayer) WindToLive(done func(session.Completion))        { f.complete("wind_to_live", done) }
func (f *fakePlayer) SwapItem(done func(session.Completion))          { f.complete("swap_item", done) }

func (f *fakePlayer) SkipForward(typ *metadata.ItemType, done func(session.Completion)) {
	f.mu.Lock()
	f.skipType = typ
	f.mu.Unlock()
	f.complete("skip_forward", done)
}

func (f *fakePlayer) SkipBackward(typ *metadata.ItemType, done func(session.Completion)) {
	f.complete("skip_backward", done)
}

func (f *fakePlayer) SwapService(id string, done func(session.Completion)) {
	f.mu.Lock()
	f.service = id
	f.mu.Unlock()
	f.complete("swap_service", done)
}

func (f *fakePlayer) MaxBitRate(kbps int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kbps = kbps
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func success() *session.Completion {
	return &session.Completion{Facet: state.FacetTimeshift, Success: true, Result: "success"}
}

func TestStateEndpoint(t *testing.T) {
	s := New(Config{}, &fakePlayer{})
	w := do(t, s.Handler(), http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got StateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "playing", got.State)
	assert.Equal(t, "native", got.Protocol)
	require.NotNil(t, got.OffsetToLiveMs)
	assert.Equal(t, int64(90000), *got.OffsetToLiveMs)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "MUSIC", got.Metadata.Current.Type)
	assert.Equal(t, []ServiceDTO{{ID: "morning-show", DisplayName: "Morning Show"}}, got.Bouquet.Services)
}

func TestWindBy(t *testing.T) {
	fp := &fakePlayer{outcome: success()}
	s := New(Config{}, fp)

	w := do(t, s.Handler(), http.MethodPost, "/api/wind", `{"by":"-30s"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got CompletionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "wind_by", got.Action)
	assert.Equal(t, -30*time.Second, fp.windBy)
}

func TestRejectedActionIsConflict(t *testing.T) {
	fp := &fakePlayer{outcome: &session.Completion{
		Facet:  state.FacetPlayout,
		Result: "rejected",
		Err:    driver.Rejected("swap_item", "no swaps left", 400),
	}}
	s := New(Config{}, fp)

	w := do(t, s.Handler(), http.MethodPost, "/api/swap/item", "")
	require.Equal(t, http.StatusConflict, w.Code)
	var got CompletionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Success)
	assert.Equal(t, "no swaps left", got.Message)
}

func TestActionTimeout(t *testing.T) {
	s := New(Config{ActionTimeout: 20 * time.Millisecond}, &fakePlayer{})
	w := do(t, s.Handler(), http.MethodPost, "/api/wind", `{"live":true}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestBadRequests(t *testing.T) {
	s := New(Config{}, &fakePlayer{outcome: success()})
	h := s.Handler()

	tests := []struct {
		name, path, body string
		want             int
	}{
		{"empty wind", "/api/wind", `{}`, http.StatusBadRequest},
		{"bad duration", "/api/wind", `{"by":"soon"}`, http.StatusBadRequest},
		{"unknown field", "/api/wind", `{"back":"30s"}`, http.StatusBadRequest},
		{"no service", "/api/swap/service", `{}`, http.StatusBadRequest},
		{"zero kbps", "/api/bitrate", `{"kbps":0}`, http.StatusBadRequest},
		{"bad direction", "/api/skip/sideways", ``, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, h, http.MethodPost, tt.path, tt.body).Code)
		})
	}
}

func TestSkipWithType(t *testing.T) {
	fp := &fakePlayer{outcome: success()}
	s := New(Config{}, fp)

	w := do(t, s.Handler(), http.MethodPost, "/api/skip/forward?type=music", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, fp.skipType)
	assert.Equal(t, metadata.TypeMusic, *fp.skipType)
}

func TestBitRateInKbps(t *testing.T) {
	fp := &fakePlayer{}
	s := New(Config{}, fp)

	w := do(t, s.Handler(), http.MethodPost, "/api/bitrate", `{"kbps":96}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, int32(96), fp.kbps)
}

func TestPlayErrorMapping(t *testing.T) {
	fp := &fakePlayer{playErr: &driver.Error{Kind: driver.ErrInvalidSession, Op: "connect", Message: "no such stream"}}
	s := New(Config{}, fp)

	w := do(t, s.Handler(), http.MethodPost, "/api/play", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no such stream")
}

func TestOperationalEndpoints(t *testing.T) {
	s := New(Config{Version: "test"}, &fakePlayer{})
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	w = do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "livectl_")
}

func TestAPIRateLimit(t *testing.T) {
	s := New(Config{RateLimit: 2}, &fakePlayer{})
	h := s.Handler()
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/state", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/api/state", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code, "health is not limited")
}

func TestSwapServiceAgainstMockServer(t *testing.T) {
	srv := native.NewMockServer()
	defer srv.Close()

	p, err := player.Open(context.Background(), player.Config{
		Endpoint: srv.URL,
		Protocol: driver.ProtocolNative,
		Native:   native.Options{Timeout: 2 * time.Second, Backoff: time.Millisecond, RateLimit: 1000},
	}, nopPipeline{}, nil)
	require.NoError(t, err)
	defer p.Close()

	s := New(Config{}, p)
	w := do(t, s.Handler(), http.MethodPost, "/api/swap/service", `{"serviceId":"rock-channel"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		return p.Snapshot().Bouquet.Active == "rock-channel"
	}, 2*time.Second, 5*time.Millisecond)

	w = do(t, s.Handler(), http.MethodPost, "/api/swap/service", `{"serviceId":"rock-channel"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "swapping to the active service is refused")
}

type nopPipeline struct{}

func (nopPipeline) Start(context.Context, string, player.Events) error { return nil }
func (nopPipeline) ChangeOverInProgress(state.Facet)                 {}
func (nopPipeline) ChangeOverComplete()                              {}
func (nopPipeline) Stop()                                            {}
