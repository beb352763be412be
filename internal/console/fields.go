// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import "strings"

// FieldList is an ordered list of payload keys that may carry one logical attribute.
// The gateway has shipped both snake_case and camelCase spellings.
type FieldList []string

var (
	RecordIDFields = FieldList{"record_id", "recordId"}
	ProxyURLFields = FieldList{"proxy_url", "proxyUrl"}
	MessageFields  = FieldList{"message", "error"}
)

// Resolve returns the first non-blank string value found under the listed keys.
func (f FieldList) Resolve(p Payload) (string, bool) {
	for _, key := range f {
		v, ok := p[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// ResolveOr is Resolve with a fallback value.
func (f FieldList) ResolveOr(p Payload, fallback string) string {
	if s, ok := f.Resolve(p); ok {
		return s
	}
	return fallback
}

func truthy(p Payload, key string) bool {
	b, ok := p[key].(bool)
	return ok && b
}
