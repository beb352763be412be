// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// Holder keeps the current configuration and swaps it atomically on reload.
// A failed reload keeps the previous configuration.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	manager *Manager
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	listenMu  sync.RWMutex
	listeners []chan<- AppConfig
}

// NewHolder wraps an already loaded configuration.
func NewHolder(initial AppConfig, loader *Loader, manager *Manager) *Holder {
	return &Holder{
		current: initial.Clone(),
		loader:  loader,
		manager: manager,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns a copy of the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Clone()
}

// Reload re-reads file and environment.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")
	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}
	h.swap(next)
	h.logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded successfully")
	return nil
}

// Update applies an admin edit: validate, persist, swap. The file write is
// skipped when no config file is in use.
func (h *Holder) Update(_ context.Context, mutate func(*AppConfig)) (AppConfig, error) {
	next := h.Get()
	mutate(&next)
	if err := Validate(next); err != nil {
		return h.Get(), err
	}
	if h.manager != nil {
		if err := h.manager.Save(next); err != nil && !errors.Is(err, ErrNoConfigFile) {
			return h.Get(), fmt.Errorf("save config: %w", err)
		}
	}
	h.swap(next)
	return next.Clone(), nil
}

func (h *Holder) swap(next AppConfig) {
	h.mu.Lock()
	old := h.current
	h.current = next.Clone()
	h.mu.Unlock()

	h.logChanges(old, next)
	h.notify(next)
}

// StartWatcher reloads on writes to the config file. No-op without a file.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	h.watcher = watcher
	h.logger.Info().Str("event", "config.watcher_started").Str("path", path).Msg("watching config file for changes")
	go h.watchLoop(ctx, watcher)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// renameio replaces the file, which shows up as Create on the watched path
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Str("event", "config.auto_reload_failed").Msg("automatic config reload failed")
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the file watcher, if running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener receives every successfully applied configuration.
// Sends are non-blocking; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenMu.Lock()
	defer h.listenMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notify(cfg AppConfig) {
	h.listenMu.RLock()
	defer h.listenMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg.Clone():
		default:
			h.logger.Warn().Str("event", "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, next AppConfig) {
	if !slices.Equal(old.DVRServers, next.DVRServers) {
		h.logger.Info().Int("old", len(old.DVRServers)).Int("new", len(next.DVRServers)).Msg("config changed: DVRServers")
	}
	if old.DVR.Retry != next.DVR.Retry {
		h.logger.Info().Int("old", old.DVR.Retry).Int("new", next.DVR.Retry).Msg("config changed: DVR.Retry")
	}
	if old.DVR.Timeout != next.DVR.Timeout {
		h.logger.Info().Dur("old", old.DVR.Timeout).Dur("new", next.DVR.Timeout).Msg("config changed: DVR.Timeout")
	}
	if old.LogLevel != next.LogLevel {
		h.logger.Info().Str("old", old.LogLevel).Str("new", next.LogLevel).Msg("config changed: LogLevel")
	}
}
