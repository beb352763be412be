// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"encoding/json"
	"net/http"

	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// Response messages shown to operators.
const (
	MsgLoginRequired = "未授权，请先登录"
	MsgTokenInvalid  = "令牌无效或已过期"
	MsgAdminRequired = "需要管理员权限"
)

// Optional attaches the principal when a valid token is present and
// otherwise lets the request through anonymously.
func (s *Service) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := ExtractToken(r); token != "" {
			if p, err := s.Verify(token); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without a valid token.
func (s *Service) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			deny(w, http.StatusUnauthorized, MsgLoginRequired)
			return
		}
		p, err := s.Verify(token)
		if err != nil {
			xglog.FromContext(r.Context()).Debug().Err(err).Str(xglog.FieldEvent, "auth.token_rejected").Msg("token rejected")
			deny(w, http.StatusUnauthorized, MsgTokenInvalid)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin must run after Require.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok || !p.IsAdmin() {
			deny(w, http.StatusForbidden, MsgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
