// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/dvrvod/internal/config"
	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// Applier pushes a configuration into a running component (locator servers,
// auth users). Appliers run sequentially on the config loop goroutine.
type Applier func(cfg config.AppConfig)

// App runs the gateway: the config loop (file watcher, SIGHUP, appliers)
// next to the server Manager.
type App struct {
	logger   zerolog.Logger
	manager  Manager
	holder   *config.Holder
	appliers []Applier
	reloadOn []os.Signal
}

func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, appliers ...Applier) *App {
	return &App{
		logger:   logger,
		manager:  manager,
		holder:   holder,
		appliers: appliers,
		reloadOn: []os.Signal{syscall.SIGHUP},
	}
}

// Run blocks until ctx is cancelled or the servers fail.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.holder != nil {
		if err := a.holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watch_disabled").Msg("config file watcher not started")
		}
		updates := make(chan config.AppConfig, 1)
		a.holder.RegisterListener(updates)
		g.Go(func() error {
			a.configLoop(ctx, updates)
			return nil
		})
	}

	g.Go(func() error {
		if err := a.manager.Start(ctx); err != nil {
			_ = a.manager.Shutdown(context.WithoutCancel(ctx))
			return err
		}
		return nil
	})
	return g.Wait()
}

func (a *App) configLoop(ctx context.Context, updates <-chan config.AppConfig) {
	var hup chan os.Signal
	if len(a.reloadOn) > 0 {
		hup = make(chan os.Signal, 1)
		signal.Notify(hup, a.reloadOn...)
		defer signal.Stop(hup)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-hup:
			a.logger.Info().Str(xglog.FieldEvent, "config.reload_signal").Str("signal", sig.String()).Msg("reloading configuration")
			if err := a.holder.Reload(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("configuration kept")
			}
		case cfg := <-updates:
			for _, apply := range a.appliers {
				apply(cfg)
			}
			a.logger.Info().
				Str(xglog.FieldEvent, "config.applied").
				Int("dvr_servers", len(cfg.DVRServers)).
				Int("appliers", len(a.appliers)).
				Msg("configuration applied")
		}
	}
}
