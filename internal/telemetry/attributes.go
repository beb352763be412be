// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared across spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	RecordIDKey    = "record.id"
	RecordCountKey = "record.count"
	DVRServerKey   = "dvr.server"
	PlayModeKey    = "play.mode"
)

func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// PlayAttributes describes a play request: mode is "single" or "batch".
func PlayAttributes(mode string, count int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlayModeKey, mode),
		attribute.Int(RecordCountKey, count),
	}
}
