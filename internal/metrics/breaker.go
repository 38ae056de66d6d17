// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker state labels.
const (
	BreakerClosed   = "closed"
	BreakerHalfOpen = "half-open"
	BreakerOpen     = "open"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "livectl_endpoint_breaker_state",
		Help: "Endpoint breaker state per component (1 for the current state)",
	}, []string{"component", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livectl_endpoint_breaker_trips_total",
		Help: "Times the endpoint breaker opened",
	}, []string{"component"})

	breakerRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livectl_endpoint_breaker_rejected_total",
		Help: "Endpoint requests refused while the breaker was open",
	}, []string{"component"})
)

// SetBreakerState marks state as the current breaker state of component.
// Entering the open state counts as a trip.
func SetBreakerState(component, state string) {
	for _, s := range []string{BreakerClosed, BreakerHalfOpen, BreakerOpen} {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(component, s).Set(v)
	}
	if state == BreakerOpen {
		breakerTrips.WithLabelValues(component).Inc()
	}
}

// RecordBreakerRejected counts a request the open breaker refused.
func RecordBreakerRejected(component string) {
	breakerRejected.WithLabelValues(component).Inc()
}
