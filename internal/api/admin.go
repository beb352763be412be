// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dvrvod/internal/auth"
	"github.com/ManuGH/dvrvod/internal/config"
	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/validate"
)

// configView is what admins see. Secrets and passwords are never exposed.
type configView struct {
	Server struct {
		ListenAddr string  `json:"listen_addr"`
		Port       int     `json:"port"`
		Timeout    float64 `json:"timeout"`
	} `json:"server"`
	DVR struct {
		Timeout          float64 `json:"timeout"`
		Retry            int     `json:"retry"`
		SkipTLSVerify    bool    `json:"skip_tls_verify"`
		RateLimit        float64 `json:"rate_limit"`
		BatchConcurrency int     `json:"batch_concurrency"`
	} `json:"dvr"`
	DVRServers []string `json:"dvr_servers"`
	CORS       struct {
		Enabled      bool     `json:"enabled"`
		AllowOrigins []string `json:"allow_origins"`
	} `json:"cors"`
	Cache struct {
		Backend string  `json:"backend"`
		TTL     float64 `json:"ttl"`
	} `json:"cache"`
	Version string `json:"version"`
}

func newConfigView(cfg config.AppConfig, servers []string, version string) configView {
	var v configView
	v.Server.ListenAddr = cfg.Server.ListenAddr
	v.Server.Port = cfg.Server.Port()
	v.Server.Timeout = cfg.Server.ReadTimeout.Seconds()
	v.DVR.Timeout = cfg.DVR.Timeout.Seconds()
	v.DVR.Retry = cfg.DVR.Retry
	v.DVR.SkipTLSVerify = cfg.DVR.SkipTLSVerify
	v.DVR.RateLimit = cfg.DVR.RateLimit
	v.DVR.BatchConcurrency = cfg.DVR.BatchConcurrency
	v.DVRServers = servers
	v.CORS.Enabled = cfg.CORS.Enabled
	v.CORS.AllowOrigins = cfg.CORS.AllowOrigins
	v.Cache.Backend = cfg.Cache.Backend
	v.Cache.TTL = cfg.Cache.TTL.Seconds()
	v.Version = version
	return v
}

// configPatch is a partial update; absent fields keep their value.
// Durations are seconds.
type configPatch struct {
	Server *struct {
		Port    *int     `json:"port"`
		Timeout *float64 `json:"timeout"`
	} `json:"server"`
	DVR *struct {
		Timeout          *float64 `json:"timeout"`
		Retry            *int     `json:"retry"`
		SkipTLSVerify    *bool    `json:"skip_tls_verify"`
		RateLimit        *float64 `json:"rate_limit"`
		BatchConcurrency *int     `json:"batch_concurrency"`
	} `json:"dvr"`
	DVRServers []string `json:"dvr_servers"`
	CORS       *struct {
		Enabled      *bool    `json:"enabled"`
		AllowOrigins []string `json:"allow_origins"`
	} `json:"cors"`
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func (p configPatch) apply(cfg *config.AppConfig) {
	if p.Server != nil {
		if p.Server.Port != nil {
			host, _, err := net.SplitHostPort(cfg.Server.ListenAddr)
			if err != nil {
				host = ""
			}
			cfg.Server.ListenAddr = net.JoinHostPort(host, strconv.Itoa(*p.Server.Port))
		}
		if p.Server.Timeout != nil {
			cfg.Server.ReadTimeout = seconds(*p.Server.Timeout)
		}
	}
	if p.DVR != nil {
		if p.DVR.Timeout != nil {
			cfg.DVR.Timeout = seconds(*p.DVR.Timeout)
		}
		if p.DVR.Retry != nil {
			cfg.DVR.Retry = *p.DVR.Retry
		}
		if p.DVR.SkipTLSVerify != nil {
			cfg.DVR.SkipTLSVerify = *p.DVR.SkipTLSVerify
		}
		if p.DVR.RateLimit != nil {
			cfg.DVR.RateLimit = *p.DVR.RateLimit
		}
		if p.DVR.BatchConcurrency != nil {
			cfg.DVR.BatchConcurrency = *p.DVR.BatchConcurrency
		}
	}
	if len(p.DVRServers) > 0 {
		cfg.DVRServers = p.DVRServers
	}
	if p.CORS != nil {
		if p.CORS.Enabled != nil {
			cfg.CORS.Enabled = *p.CORS.Enabled
		}
		if p.CORS.AllowOrigins != nil {
			cfg.CORS.AllowOrigins = p.CORS.AllowOrigins
		}
	}
}

func (s *Server) adminLogger(r *http.Request) zerolog.Logger {
	l := xglog.FromContext(r.Context()).With().Str(xglog.FieldComponent, "admin").Logger()
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		l = l.With().Str(xglog.FieldUser, p.Username).Logger()
	}
	return l
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config":  newConfigView(cfg, s.Locator.Servers(r.Context()), s.Version),
	})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	logger := s.adminLogger(r)
	var patch configPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&patch); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	next, err := s.Config.Update(r.Context(), patch.apply)
	if err != nil {
		var verr validate.ValidationError
		if errors.As(err, &verr) {
			writeFailure(w, http.StatusBadRequest, "invalid config: "+verr.Error())
			return
		}
		logger.Error().Err(err).Str(xglog.FieldEvent, "admin.config_failed").Msg("update config")
		writeFailure(w, http.StatusInternalServerError, "failed to update config: "+err.Error())
		return
	}
	if len(patch.DVRServers) > 0 && s.Store != nil {
		if err := s.Store.Replace(r.Context(), next.DVRServers); err != nil {
			logger.Error().Err(err).Msg("persist dvr servers")
			writeFailure(w, http.StatusInternalServerError, "failed to update config: "+err.Error())
			return
		}
	}
	logger.Info().Str(xglog.FieldEvent, "admin.config_updated").Msg("config updated")
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "config updated successfully"})
}

type serversResponse struct {
	Success bool     `json:"success"`
	Servers []string `json:"servers,omitempty"`
	Count   int      `json:"count"`
	Message string   `json:"message,omitempty"`
}

func (s *Server) handleGetServers(w http.ResponseWriter, r *http.Request) {
	servers := s.Locator.Servers(r.Context())
	if servers == nil {
		servers = []string{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool     `json:"success"`
		Servers []string `json:"servers"`
		Count   int      `json:"count"`
	}{true, servers, len(servers)})
}

// handleUpdateServers replaces the list in the store and mirrors it into the
// config file, which serves as fallback when the store is empty.
func (s *Server) handleUpdateServers(w http.ResponseWriter, r *http.Request) {
	logger := s.adminLogger(r)
	var req struct {
		Servers []string `json:"servers"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, serversResponse{Message: "invalid request: " + err.Error()})
		return
	}
	if len(req.Servers) == 0 {
		writeJSON(w, http.StatusBadRequest, serversResponse{Message: "servers list cannot be empty"})
		return
	}
	v := validate.New()
	config.ValidateServers(v, req.Servers)
	if err := v.Err(); err != nil {
		writeJSON(w, http.StatusBadRequest, serversResponse{Message: "invalid request: " + err.Error()})
		return
	}

	if s.Store != nil {
		if err := s.Store.Replace(r.Context(), req.Servers); err != nil {
			logger.Error().Err(err).Str(xglog.FieldEvent, "admin.servers_failed").Msg("persist dvr servers")
			writeJSON(w, http.StatusInternalServerError, serversResponse{Message: "failed to update config: " + err.Error()})
			return
		}
	}
	if _, err := s.Config.Update(r.Context(), func(c *config.AppConfig) { c.DVRServers = req.Servers }); err != nil {
		if s.Store == nil {
			writeJSON(w, http.StatusInternalServerError, serversResponse{Message: "failed to update config: " + err.Error()})
			return
		}
		logger.Warn().Err(err).Msg("servers stored but config file not updated")
	}

	logger.Info().Int("count", len(req.Servers)).Str(xglog.FieldEvent, "admin.servers_updated").Msg("dvr server list updated")
	writeJSON(w, http.StatusOK, serversResponse{Success: true, Message: "DVR servers updated successfully", Count: len(req.Servers)})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Config.Reload(r.Context()); err != nil {
		logger := s.adminLogger(r)
		logger.Error().Err(err).Str(xglog.FieldEvent, "admin.reload_failed").Msg("reload config")
		writeFailure(w, http.StatusInternalServerError, "failed to reload config: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "config reloaded successfully"})
}
