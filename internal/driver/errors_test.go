// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package driver

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapsKindAndCause(t *testing.T) {
	err := &Error{Kind: ErrTransportFailure, Op: "wind", Status: 503, Err: io.ErrUnexpectedEOF}
	wrapped := fmt.Errorf("session: %w", err)

	assert.ErrorIs(t, wrapped, ErrTransportFailure)
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, wrapped, ErrActionRejected)
	assert.Equal(t, "wind: driver: transport failure (HTTP 503): unexpected EOF", err.Error())
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		err  error
		want Severity
	}{
		{&Error{Kind: ErrInvalidSession, Op: "connect"}, SeverityFatal},
		{ErrFatal, SeverityFatal},
		{Rejected("wind", "", 200), SeverityNotice},
		{Unsupported(ProtocolICY, "skip"), SeverityNotice},
		{&Error{Kind: ErrTransportFailure, Op: "info"}, SeverityRecoverable},
		{errors.New("other"), SeverityRecoverable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityOf(tt.err), tt.err.Error())
	}
}

func TestMessageIsHumanReadable(t *testing.T) {
	assert.Equal(t, "skip is not available for icy sessions", Message(Unsupported(ProtocolICY, "skip")))
	assert.Equal(t, "request refused by server", Message(Rejected("wind", "", 0)))
	assert.Equal(t, "cannot wind beyond session start", Message(fmt.Errorf("x: %w", Rejected("wind", "cannot wind beyond session start", 200))))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Empty(t, Message(nil))
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol(" Native ")
	require.NoError(t, err)
	assert.Equal(t, ProtocolNative, p)

	p, err = ParseProtocol("")
	require.NoError(t, err)
	assert.Equal(t, ProtocolAuto, p)

	_, err = ParseProtocol("rtsp")
	require.Error(t, err)
}
