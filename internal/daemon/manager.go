// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon runs the gateway servers and owns their lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dvrvod/internal/config"
	xglog "github.com/ManuGH/dvrvod/internal/log"
)

const (
	defaultShutdownTimeout = 15 * time.Second
	stopGrace              = 30 * time.Second
)

// ShutdownHook releases a resource (database, cache, tracer) after the
// servers have stopped. Hooks run last-registered first.
type ShutdownHook func(ctx context.Context) error

// Manager starts the gateway listeners and stops them with the registered hooks.
type Manager interface {
	// Start blocks until ctx is cancelled or a listener fails.
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// boundServer is a listener bound before serving so address conflicts are
// reported by Start itself.
type boundServer struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

type manager struct {
	cfg    config.ServerConfig
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	started  bool
	stopping bool
	servers  []boundServer
	hooks    []namedHook
}

func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if serverCfg.ShutdownTimeout <= 0 {
		serverCfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &manager{
		cfg:    serverCfg,
		deps:   deps,
		logger: deps.Logger.With().Str(xglog.FieldComponent, "daemon").Logger(),
	}, nil
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.cfg.ListenAddr).
		Dur("read_timeout", m.cfg.ReadTimeout).
		Dur("write_timeout", m.cfg.WriteTimeout).
		Str(xglog.FieldEvent, "daemon.start").
		Msg("starting gateway")

	if m.deps.MetricsHandler != nil && m.deps.MetricsAddr != "" {
		if err := m.bind("metrics", m.deps.MetricsAddr, &http.Server{
			Handler:           m.deps.MetricsHandler,
			ReadHeaderTimeout: 5 * time.Second,
		}); err != nil {
			m.stopAfterFailure(ctx)
			return fmt.Errorf("bind metrics server: %w", err)
		}
	}
	if err := m.bind("api", m.cfg.ListenAddr, &http.Server{
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
		MaxHeaderBytes:    m.cfg.MaxHeaderBytes,
	}); err != nil {
		m.stopAfterFailure(ctx)
		return fmt.Errorf("bind api server: %w", err)
	}

	m.mu.Lock()
	servers := append([]boundServer(nil), m.servers...)
	m.mu.Unlock()

	failed := make(chan error, len(servers))
	for _, s := range servers {
		go m.serve(s, failed)
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopGrace)
	defer cancel()
	select {
	case err := <-failed:
		if stopErr := m.Shutdown(stopCtx); stopErr != nil {
			return errors.Join(err, stopErr)
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Str(xglog.FieldEvent, "daemon.stop_requested").Msg("stopping gateway")
		return m.Shutdown(stopCtx)
	}
}

func (m *manager) bind(name, addr string, srv *http.Server) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.servers = append(m.servers, boundServer{name: name, srv: srv, ln: ln})
	m.mu.Unlock()
	return nil
}

func (m *manager) serve(s boundServer, failed chan<- error) {
	m.logger.Info().Str("server", s.name).Str("addr", s.ln.Addr().String()).Msg("listening")
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error().Err(err).Str("server", s.name).Str(xglog.FieldEvent, "daemon.serve_failed").Msg("server failed")
		failed <- fmt.Errorf("%s server: %w", s.name, err)
	}
}

func (m *manager) stopAfterFailure(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = m.Shutdown(stopCtx)
}

// Shutdown stops the servers, then runs hooks in reverse order. Every failure
// is collected; a second call is a no-op.
func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	servers := append([]boundServer(nil), m.servers...)
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(servers) - 1; i >= 0; i-- {
		s := servers[i]
		if err := s.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", s.name, err))
		}
		// Shutdown skips listeners whose Serve never ran.
		_ = s.ln.Close()
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		err := h.hook(ctx)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str("hook", h.name).Dur(xglog.FieldDuration, time.Since(start)).Msg("shutdown hook ran")
	}

	if len(errs) > 0 {
		m.logger.Error().Int("errors", len(errs)).Str(xglog.FieldEvent, "daemon.stopped").Msg("gateway stopped with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("gateway stopped")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, hook: hook})
}
