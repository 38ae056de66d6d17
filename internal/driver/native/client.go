// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/metrics"
	"github.com/ManuGH/livectl/internal/telemetry"
)

// Options configures the control client.
type Options struct {
	Timeout          time.Duration
	MaxRetries       int
	Backoff          time.Duration
	MaxBackoff       time.Duration
	UserAgent        string
	RateLimit        rate.Limit
	RateLimitBurst   int
	BreakerThreshold int
	BreakerReset     time.Duration
	// Transport overrides the base round tripper, mainly for tests.
	Transport http.RoundTripper
}

const (
	defaultTimeout        = 5 * time.Second
	defaultRetries        = 2
	defaultBackoff        = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	defaultRateLimit      = 10
	defaultRateLimitBurst = 20
	maxBodyBytes          = 1 << 20
)

// Client speaks the JSON envelope protocol. It rate limits, retries
// idempotent requests with jittered backoff, traces every attempt and trips a
// circuit breaker when the server keeps failing.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	userAgent  string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewClient creates a control client.
func NewClient(opts Options) *Client {
	nopts := normalizeOptions(opts)
	base := nopts.Transport
	if base == nil {
		base = &http.Transport{
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: nopts.Timeout,
			TLSHandshakeTimeout:   5 * time.Second,
		}
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   nopts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		limiter:    rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		breaker:    NewCircuitBreaker("native", nopts.BreakerThreshold, nopts.BreakerReset),
		maxRetries: nopts.MaxRetries,
		backoff:    nopts.Backoff,
		maxBackoff: nopts.MaxBackoff,
		userAgent:  nopts.UserAgent,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "livectl"
	}
	return opts
}

// request is one logical control call.
type request struct {
	method string
	base   string
	path   string
	params url.Values
	// idempotent requests are retried on transport failures.
	idempotent bool
}

// Do performs req and returns the envelope. A server refusal is returned as
// ErrActionRejected together with the envelope; anything else that prevents
// a well-formed answer is ErrTransportFailure.
func (c *Client) Do(ctx context.Context, req request) (*Envelope, error) {
	u, err := url.Parse(strings.TrimRight(req.base, "/") + req.path)
	if err != nil {
		return nil, &driver.Error{Kind: driver.ErrInvalidSession, Op: req.path, Message: "malformed control address", Err: err}
	}
	u.RawQuery = req.params.Encode()

	var env *Envelope
	err = c.breaker.Execute(func() error {
		var rtErr error
		env, rtErr = c.roundTrip(ctx, req, u.String())
		return rtErr
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, &driver.Error{Kind: driver.ErrTransportFailure, Op: req.path, Message: "control server unavailable", Err: err}
	}
	if err != nil {
		return nil, err
	}
	if !env.Header.Success {
		return env, driver.Rejected(req.path, env.Header.Message, env.Header.StatusCode)
	}
	return env, nil
}

func (c *Client) roundTrip(ctx context.Context, req request, rawURL string) (*Envelope, error) {
	tracer := telemetry.Tracer("livectl.native")
	ctx, span := tracer.Start(ctx, "livectl.native.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("http.route", req.path),
	)
	defer span.End()

	maxAttempts := 1
	if req.idempotent {
		maxAttempts += c.maxRetries
	}

	var lastErr error
	var lastStatus int
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		env, status, err := c.attempt(ctx, req, rawURL, attempt)
		lastErr, lastStatus = err, status
		if err == nil {
			span.SetAttributes(telemetry.HTTPAttributes(req.method, req.path, status)...)
			span.SetStatus(codes.Ok, "")
			return env, nil
		}
		if attempt == maxAttempts || !retryable(status, err) {
			break
		}
		if serr := sleepWithContext(ctx, c.backoffFor(attempt-1)); serr != nil {
			lastErr = serr
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	var de *driver.Error
	if errors.As(lastErr, &de) {
		return nil, lastErr
	}
	return nil, &driver.Error{
		Kind:    driver.ErrTransportFailure,
		Op:      req.path,
		Message: "control server did not answer",
		Status:  lastStatus,
		Err:     lastErr,
	}
}

// attempt returns the decoded envelope, the HTTP status (0 without a
// response) and a transport-level error.
func (c *Client) attempt(ctx context.Context, req request, rawURL string, n int) (*Envelope, int, error) {
	tracer := telemetry.Tracer("livectl.native")
	ctx, span := tracer.Start(ctx, "livectl.native.request.attempt", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.Int("attempt", n), attribute.Bool("retry", n > 1))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	metrics.RecordDriverRequest(req.path, status, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	span.SetAttributes(telemetry.HTTPAttributes(req.method, req.path, status)...)

	var env Envelope
	decErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env)
	switch {
	case status >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, http.StatusText(status))
		return nil, status, fmt.Errorf("server returned %d", status)
	case decErr != nil:
		span.SetStatus(codes.Error, "malformed envelope")
		return nil, status, &driver.Error{
			Kind:    driver.ErrTransportFailure,
			Op:      req.path,
			Message: "control server sent an unreadable answer",
			Status:  status,
			Err:     decErr,
		}
	case status >= http.StatusBadRequest && env.Header.Success:
		// An error status must not be mistaken for acceptance.
		env.Header.Success = false
	}
	if env.Header.StatusCode == 0 {
		env.Header.StatusCode = status
	}
	span.SetStatus(codes.Ok, "")
	return &env, status, nil
}

// retryable reports whether a failed attempt may succeed on a second try.
func retryable(status int, err error) bool {
	var de *driver.Error
	if errors.As(err, &de) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return status == 0 || status >= http.StatusInternalServerError
}

func (c *Client) backoffFor(attempt int) time.Duration {
	wait := c.backoff * time.Duration(1<<attempt)
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	c.mu.Lock()
	jitter := time.Duration(c.rnd.Int63n(int64(wait/5 + 1)))
	c.mu.Unlock()
	return wait + jitter
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
