// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package driver

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrInvalidSession    = errors.New("driver: invalid session endpoint")
	ErrUnsupportedAction = errors.New("driver: action not supported by protocol")
	ErrActionRejected    = errors.New("driver: action rejected")
	ErrTransportFailure  = errors.New("driver: transport failure")
	ErrFatal             = errors.New("driver: unrecoverable session failure")
	ErrNotConnected      = errors.New("driver: not connected")
	ErrClosed            = errors.New("driver: session closed")
)

// Error wraps a sentinel with the operation and a message fit for a listener.
type Error struct {
	Kind    error
	Op      string
	Message string
	Status  int
	Err     error // lower-level cause, e.g. a net.Error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Unsupported is the acceptance-time rejection for a missing capability.
func Unsupported(p Protocol, op string) error {
	return &Error{
		Kind:    ErrUnsupportedAction,
		Op:      op,
		Message: fmt.Sprintf("%s is not available for %s sessions", op, p),
	}
}

// Rejected builds the error for a server refusal.
func Rejected(op, message string, status int) error {
	if message == "" {
		message = "request refused by server"
	}
	return &Error{Kind: ErrActionRejected, Op: op, Message: message, Status: status}
}

// Severity ranks how an error is surfaced.
type Severity string

const (
	SeverityFatal       Severity = "fatal"
	SeverityRecoverable Severity = "recoverable"
	SeverityNotice      Severity = "notice"
)

// SeverityOf classifies err. Unclassified errors are recoverable.
func SeverityOf(err error) Severity {
	switch {
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrFatal):
		return SeverityFatal
	case errors.Is(err, ErrActionRejected), errors.Is(err, ErrUnsupportedAction):
		return SeverityNotice
	default:
		return SeverityRecoverable
	}
}

// Message returns the human-readable text paired with err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
