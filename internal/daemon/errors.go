// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// Construction errors.
var (
	ErrMissingLogger     = errors.New("daemon: logger is required")
	ErrMissingAPIHandler = errors.New("daemon: gateway handler is required")
	ErrMissingManager    = errors.New("daemon: server manager is required")
)

// Lifecycle errors.
var (
	ErrAlreadyStarted    = errors.New("daemon: servers already started")
	ErrManagerNotStarted = errors.New("daemon: servers not started")
)
