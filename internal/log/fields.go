// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRecordID  = "record_id"
	FieldUser      = "user"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Upstream fields
	FieldServer      = "server"
	FieldServerIndex = "server_index"
	FieldAttempt     = "attempt"
	FieldStatus      = "status"

	// Path / URL fields
	FieldPath     = "path"
	FieldURL      = "url"
	FieldProxyURL = "proxy_url"

	// Network fields
	FieldRemoteAddr = "remote_addr"
	FieldBytes      = "bytes"
	FieldDuration   = "duration"
)
