// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "livectl_http_rate_limited_total",
	Help: "Requests refused by the API rate limiter",
}, []string{"method"})

// RateLimitConfig configures a sliding-window limiter keyed by client IP.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// PerEndpoint counts each method and path separately, so a burst of
	// control actions does not starve state polling.
	PerEndpoint bool
}

// RateLimit limits requests with httprate's sliding window counter and
// answers refused requests with a JSON 429.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keys := []httprate.KeyFunc{httprate.KeyByIP}
	if cfg.PerEndpoint {
		keys = append(keys, httprate.KeyByEndpoint)
	}
	retryAfter := strconv.Itoa(max(1, int(math.Ceil(cfg.WindowSize.Seconds()))))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keys...),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpRateLimited.WithLabelValues(r.Method).Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":  "rate_limited",
				"detail": "too many requests, retry after " + retryAfter + "s",
			})
		}),
	)
}
