// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP surface of the gateway.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/dvrvod/internal/api/middleware"
	"github.com/ManuGH/dvrvod/internal/auth"
	"github.com/ManuGH/dvrvod/internal/cache"
	"github.com/ManuGH/dvrvod/internal/config"
	"github.com/ManuGH/dvrvod/internal/health"
	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// Locator resolves record ids to upstream URLs.
type Locator interface {
	Find(ctx context.Context, recordID string) (string, error)
	Servers(ctx context.Context) []string
}

// ServerStore persists the DVR server list.
type ServerStore interface {
	List(ctx context.Context) ([]string, error)
	Replace(ctx context.Context, servers []string) error
}

// Deps are the collaborators of the HTTP server. Store and Health may be nil.
type Deps struct {
	Config  *config.Holder
	Locator Locator
	Cache   cache.Cache
	Store   ServerStore
	Auth    *auth.Service
	Stream  http.Handler
	Health  *health.Manager
	Version string
}

type Server struct {
	Deps
	logger zerolog.Logger
}

func New(deps Deps) *Server {
	return &Server{Deps: deps, logger: xglog.WithComponent("api")}
}

// Handler builds the router. CORS and rate limits are read once here; they
// take effect for new handlers only after a restart.
func (s *Server) Handler() http.Handler {
	cfg := s.Config.Get()
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            cfg.CORS.Enabled,
		AllowOrigins:          cfg.CORS.AllowOrigins,
		AllowMethods:          cfg.CORS.AllowMethods,
		AllowHeaders:          cfg.CORS.AllowHeaders,
		EnableSecurityHeaders: true,
		CSRFCookie:            auth.SessionCookie,
		EnableMetrics:         true,
		TracingService:        tracingService(cfg),
		EnableLogging:         true,
		EnableRateLimit:       cfg.RateLimit.Enabled,
		RateLimit:             cfg.RateLimit.Requests,
		RateWindow:            cfg.RateLimit.Window,
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Get("/me", s.handleMe)
		r.Post("/logout", s.handleLogout)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.Auth.Require, auth.RequireAdmin)
		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handleUpdateConfig)
		r.Get("/dvr-servers", s.handleGetServers)
		r.Post("/dvr-servers", s.handleUpdateServers)
		r.Post("/reload", s.handleReload)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Optional)
		r.Post("/api/play", s.handlePlay)
		r.Get("/api/play", s.handlePlay)
		r.Get("/api/config", s.handlePublicConfig)
	})

	r.Method(http.MethodGet, "/stream/{filename}", s.Stream)
	r.Method(http.MethodHead, "/stream/{filename}", s.Stream)

	r.Get("/health", s.handleHealth)
	r.Head("/health", s.handleHealth)
	if s.Health != nil {
		r.Get("/healthz", s.Health.ServeHealth)
		r.Get("/readyz", s.Health.ServeReady)
	}
	return r
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Tracing.Enabled {
		return ""
	}
	return "dvrvod"
}
