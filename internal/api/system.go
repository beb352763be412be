// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
)

type publicConfig struct {
	ServerPort   int    `json:"server_port"`
	DVRCount     int    `json:"dvr_count"`
	RetryEnabled bool   `json:"retry_enabled"`
	RetryCount   int    `json:"retry_count"`
	Version      string `json:"version"`
}

func (s *Server) handlePublicConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Get()
	writeJSON(w, http.StatusOK, publicConfig{
		ServerPort:   cfg.Server.Port(),
		DVRCount:     len(s.Locator.Servers(r.Context())),
		RetryEnabled: cfg.DVR.Retry > 0,
		RetryCount:   cfg.DVR.Retry,
		Version:      s.Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"dvr_servers": len(s.Locator.Servers(r.Context())),
	})
}
