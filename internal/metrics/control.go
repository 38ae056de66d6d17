// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors exported by livectl.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Change-over results.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultRejected  = "rejected"
	ResultPreempted = "preempted"
	ResultTimeout   = "timeout"
	ResultCancelled = "cancelled"
)

var (
	// ChangeOverTotal counts resolved change-overs by facet and outcome.
	ChangeOverTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livectl_changeover_total",
		Help: "Total number of resolved change-overs by facet and result",
	}, []string{"facet", "result"})

	// ChangeOverDuration tracks time from action start to completion.
	ChangeOverDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "livectl_changeover_duration_seconds",
		Help:    "Time from control action to change-over completion",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"facet"})

	// NotificationsTotal counts listener dispatches per facet.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livectl_notifications_total",
		Help: "Total number of facet notifications dispatched to listeners",
	}, []string{"facet"})

	playbackState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "livectl_playback_state",
		Help: "Current playback state (the active state is 1, others 0)",
	}, []string{"state"})

	// BitRateRequestTotal counts bit-rate ceiling requests by outcome.
	BitRateRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livectl_bitrate_request_total",
		Help: "Total number of maximum bit-rate requests by result",
	}, []string{"result"})

	// ProblemsTotal counts playback problems reported upward.
	ProblemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livectl_problems_total",
		Help: "Total number of playback problems by kind",
	}, []string{"kind"})
)

var playbackStates = []string{"stopped", "buffering", "playing"}

// RecordChangeOver records a resolved change-over. A zero elapsed skips the histogram.
func RecordChangeOver(facet, result string, elapsed time.Duration) {
	ChangeOverTotal.WithLabelValues(facet, result).Inc()
	if elapsed > 0 {
		ChangeOverDuration.WithLabelValues(facet).Observe(elapsed.Seconds())
	}
}

// RecordNotification counts one listener dispatch for facet.
func RecordNotification(facet string) {
	NotificationsTotal.WithLabelValues(facet).Inc()
}

// SetPlaybackState marks state as the active playback state.
func SetPlaybackState(state string) {
	for _, s := range playbackStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		playbackState.WithLabelValues(s).Set(value)
	}
}

// RecordBitRateRequest counts one bit-rate ceiling request.
func RecordBitRateRequest(result string) {
	BitRateRequestTotal.WithLabelValues(result).Inc()
}

// RecordProblem counts one reported playback problem.
func RecordProblem(kind string) {
	ProblemsTotal.WithLabelValues(kind).Inc()
}
