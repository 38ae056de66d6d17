// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package native

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/livectl/internal/driver"
)

func TestClientRetriesIdempotentRequests(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.FailNext(pathCreate, 2)

	d := New(srv.URL, testOptions())
	require.NoError(t, d.Connect(context.Background()))
	assert.Equal(t, 3, srv.Requests(pathCreate))
}

func TestClientDoesNotRetryRelativeActions(t *testing.T) {
	d, srv := connected(t)
	srv.FailNext(pathWind, 1)

	err := d.WindBy(context.Background(), -time.Minute)
	require.ErrorIs(t, err, driver.ErrTransportFailure)
	assert.Equal(t, 1, srv.Requests(pathWind))
}

func TestClientMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(testOptions())
	_, err := c.Do(context.Background(), request{method: http.MethodGet, base: srv.URL, path: pathInfo})
	require.ErrorIs(t, err, driver.ErrTransportFailure)
}

func TestClientErrorStatusIsNeverAcceptance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"__responseHeader":{"success":true}}`))
	}))
	defer srv.Close()

	c := NewClient(testOptions())
	env, err := c.Do(context.Background(), request{method: http.MethodPost, base: srv.URL, path: pathWind})
	require.ErrorIs(t, err, driver.ErrActionRejected)
	require.NotNil(t, env)
	assert.Equal(t, http.StatusConflict, env.Header.StatusCode)
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cb := NewCircuitBreaker("test", 2, time.Minute)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	require.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, BreakerClosed, cb.State())
	require.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, BreakerOpen, cb.State())

	called := false
	require.ErrorIs(t, cb.Execute(func() error { called = true; return nil }), ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cb := NewCircuitBreaker("test", 1, time.Second)
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errors.New("down") })
	require.Equal(t, BreakerOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errors.New("still down") })
	assert.Equal(t, BreakerOpen, cb.State())
}
