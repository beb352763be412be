// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import "context"

// Result is one row of the result set, aligned with one submitted identifier.
type Result struct {
	Key      string `json:"key"`
	RecordID string `json:"record_id"`
	Found    bool   `json:"found"`
	ProxyURL string `json:"proxy_url,omitempty"`
	Error    string `json:"error,omitempty"`
	Playing  bool   `json:"playing"`
}

// Playable reports whether the row can be streamed or downloaded.
func (r Result) Playable() bool {
	return r.Found && r.ProxyURL != ""
}

// Payload is a decoded JSON object returned by the gateway.
type Payload map[string]any

// Lookup is the gateway collaborator used by the Dispatcher.
type Lookup interface {
	LookupOne(ctx context.Context, recordID string) (Payload, error)
	LookupMany(ctx context.Context, recordIDs []string) (Payload, error)
}
