// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"

	"github.com/ManuGH/livectl/internal/playback"
)

// CheckerFunc adapts a function into a Checker.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewCheckerFunc wraps fn under name.
func NewCheckerFunc(name string, fn func(ctx context.Context) CheckResult) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (c *CheckerFunc) Name() string                          { return c.name }
func (c *CheckerFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// Session is what the session checks read from the player.
type Session interface {
	Connected() bool
	State() playback.State
	CurrentProblem() string
}

// SessionChecker reports the control session. A lost session is
// unhealthy; an open problem or stopped playback is degraded.
type SessionChecker struct {
	session Session
}

// NewSessionChecker creates a checker for s.
func NewSessionChecker(s Session) *SessionChecker {
	return &SessionChecker{session: s}
}

func (c *SessionChecker) Name() string { return "session" }

func (c *SessionChecker) Check(_ context.Context) CheckResult {
	if !c.session.Connected() {
		return CheckResult{Status: StatusUnhealthy, Error: "control session is not connected"}
	}
	if problem := c.session.CurrentProblem(); problem != "" {
		return CheckResult{Status: StatusDegraded, Message: problem}
	}
	st := c.session.State()
	if !st.Active() {
		return CheckResult{Status: StatusDegraded, Message: "playback is " + string(st)}
	}
	return CheckResult{Status: StatusHealthy, Message: string(st)}
}
