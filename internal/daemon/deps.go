// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps are the handlers and logger the Manager serves with.
type Deps struct {
	Logger zerolog.Logger

	// APIHandler serves /api, /stream and the health routes.
	APIHandler http.Handler

	// MetricsHandler and MetricsAddr run a separate Prometheus listener.
	// An empty MetricsAddr disables it.
	MetricsHandler http.Handler
	MetricsAddr    string
}

// Validate rejects a disabled logger and a missing gateway handler.
func (d *Deps) Validate() error {
	switch {
	case d.Logger.GetLevel() == zerolog.Disabled:
		return ErrMissingLogger
	case d.APIHandler == nil:
		return ErrMissingAPIHandler
	}
	return nil
}
