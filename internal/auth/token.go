// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SessionCookie carries the token for browser clients.
const SessionCookie = "dvrvod_session"

// ExtractToken retrieves the bearer token from the request.
// 1. Authorization: Bearer <token>
// 2. Cookie: dvrvod_session
// 3. Header: X-API-Token (legacy)
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return strings.TrimSpace(h)
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}

// constantTimeEqual reports whether got matches expected. Empty values never match.
func constantTimeEqual(got, expected string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
