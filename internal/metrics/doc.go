// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics registers the gateway's Prometheus collectors on the default
// registry and exposes small recording helpers.
package metrics
