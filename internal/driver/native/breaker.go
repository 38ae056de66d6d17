// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package native

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/livectl/internal/metrics"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // requests flow
	BreakerOpen                         // requests fail fast
	BreakerHalfOpen                     // next request probes the server
)

// ErrCircuitOpen is returned while the breaker refuses requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops hammering a control server that keeps failing.
// Only transport failures count; a server saying "no" is a healthy answer.
type CircuitBreaker struct {
	component string
	threshold int
	reset     time.Duration
	now       func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker opens after threshold consecutive failures and probes
// again after reset.
func NewCircuitBreaker(component string, threshold int, reset time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if reset <= 0 {
		reset = 30 * time.Second
	}
	cb := &CircuitBreaker{
		component: component,
		threshold: threshold,
		reset:     reset,
		now:       time.Now,
	}
	metrics.SetBreakerState(component, stateLabel(BreakerClosed))
	return cb
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		metrics.RecordBreakerRejected(cb.component)
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err == nil)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	if cb.state != BreakerOpen {
		cb.mu.Unlock()
		return true
	}
	if cb.now().Sub(cb.lastFailure) <= cb.reset {
		cb.mu.Unlock()
		return false
	}
	cb.state = BreakerHalfOpen
	cb.mu.Unlock()
	metrics.SetBreakerState(cb.component, stateLabel(BreakerHalfOpen))
	return true
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	prev := cb.state
	if ok {
		cb.failures = 0
		cb.state = BreakerClosed
	} else {
		cb.failures++
		cb.lastFailure = cb.now()
		if prev == BreakerHalfOpen || cb.failures >= cb.threshold {
			cb.state = BreakerOpen
		}
	}
	next := cb.state
	cb.mu.Unlock()

	if next != prev {
		metrics.SetBreakerState(cb.component, stateLabel(next))
	}
}

func stateLabel(state BreakerState) string {
	switch state {
	case BreakerOpen:
		return metrics.BreakerOpen
	case BreakerHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}
