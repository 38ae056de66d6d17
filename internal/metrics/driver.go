// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	driverRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livectl_driver_request_total",
		Help: "Total number of native control requests by endpoint and status class",
	}, []string{"endpoint", "status_class"})

	driverRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "livectl_driver_request_duration_seconds",
		Help:    "Duration of native control requests",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint", "status_class"})
)

// RecordDriverRequest records one control request attempt. A zero status
// means the request never produced a response.
func RecordDriverRequest(endpoint string, status int, elapsed time.Duration) {
	class := StatusClass(status)
	driverRequestTotal.WithLabelValues(endpoint, class).Inc()
	driverRequestDuration.WithLabelValues(endpoint, class).Observe(elapsed.Seconds())
}

// StatusClass maps an HTTP status to "2xx"-style labels; zero is "error".
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
