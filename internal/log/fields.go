// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldServiceID = "service_id"
	FieldToken     = "token"

	// Control fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldAction    = "action"
	FieldFacet     = "facet"
	FieldSuccess   = "success"
	FieldProtocol  = "protocol"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Playout fields
	FieldMaxBitRate   = "max_bit_rate"
	FieldOffsetToLive = "offset_to_live"

	// Path / URL fields
	FieldBaseURL  = "base_url"
	FieldEndpoint = "endpoint"
)
