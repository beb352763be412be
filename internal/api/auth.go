// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/dvrvod/internal/auth"
	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/metrics"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool            `json:"success"`
	Token     string          `json:"token,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	User      *auth.Principal `json:"user,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type meResponse struct {
	Success bool            `json:"success"`
	User    *auth.Principal `json:"user,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := xglog.FromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		metrics.RecordLogin("bad_request")
		writeJSON(w, http.StatusBadRequest, loginResponse{Message: "请求参数错误"})
		return
	}

	p, err := s.Auth.Authenticate(req.Username, req.Password)
	if err != nil {
		metrics.RecordLogin("failure")
		logger.Warn().Str(xglog.FieldUser, req.Username).Str(xglog.FieldEvent, "auth.login_failed").Msg("login rejected")
		writeJSON(w, http.StatusUnauthorized, loginResponse{Message: "用户名或密码错误"})
		return
	}

	token, exp, err := s.Auth.Issue(p)
	if err != nil {
		metrics.RecordLogin("error")
		logger.Error().Err(err).Msg("issue token")
		writeJSON(w, http.StatusInternalServerError, loginResponse{Message: "生成令牌失败"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	metrics.RecordLogin("success")
	logger.Info().Str(xglog.FieldUser, p.Username).Str(xglog.FieldEvent, "auth.login").Msg("operator logged in")
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, ExpiresAt: &exp, User: &p})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, meResponse{})
		return
	}
	p, err := s.Auth.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, meResponse{})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Success: true, User: &p})
}

// handleLogout clears the session cookie. Tokens are stateless; header-based
// clients simply drop theirs.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "登出成功"})
}
