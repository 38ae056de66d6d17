// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

// Load failures callers can match with errors.Is.
var (
	ErrUnknownConfigField = errors.New("unknown config field")
	ErrUnsupportedFormat  = errors.New("unsupported config format")
	ErrMultipleDocuments  = errors.New("config file contains multiple documents")
)
