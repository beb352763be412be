// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/dvrvod/internal/api"
	"github.com/ManuGH/dvrvod/internal/archive"
	"github.com/ManuGH/dvrvod/internal/auth"
	"github.com/ManuGH/dvrvod/internal/cache"
	"github.com/ManuGH/dvrvod/internal/config"
	"github.com/ManuGH/dvrvod/internal/daemon"
	"github.com/ManuGH/dvrvod/internal/health"
	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/persistence/sqlite"
	"github.com/ManuGH/dvrvod/internal/streamproxy"
	"github.com/ManuGH/dvrvod/internal/telemetry"
	"github.com/ManuGH/dvrvod/internal/version"
)

const dbFileName = "dvrvod.db"

type namedHook struct {
	name string
	fn   daemon.ShutdownHook
}

// runtime is everything main hands to the daemon manager.
type runtime struct {
	apiHandler     http.Handler
	metricsHandler http.Handler
	metricsAddr    string
	appliers       []daemon.Applier
	hooks          []namedHook
}

func buildRuntime(ctx context.Context, holder *config.Holder) (*runtime, error) {
	cfg := holder.Get()
	rt := &runtime{}

	tp, err := telemetry.NewProvider(ctx, telemetry.FromAppConfig(cfg.Tracing, version.Version))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	rt.hooks = append(rt.hooks, namedHook{"telemetry", tp.Shutdown})

	db, err := sqlite.Open(filepath.Join(cfg.DataDir, dbFileName), sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open server store: %w", err)
	}
	rt.hooks = append(rt.hooks, namedHook{"sqlite", func(context.Context) error { return db.Close() }})
	store := sqlite.NewServerStore(db)

	cacheCfg := cfg.Cache
	if cacheCfg.Backend == "badger" && cacheCfg.Path == "" {
		cacheCfg.Path = filepath.Join(cfg.DataDir, "cache")
	}
	urls := cache.New(ctx, cacheCfg, xglog.WithComponent("cache"))
	rt.hooks = append(rt.hooks, namedHook{"cache", func(context.Context) error { return urls.Close() }})

	locator := archive.NewLocator(archive.SettingsFromConfig(cfg), store)
	authSvc := auth.NewService(cfg.Auth)
	stream := streamproxy.New(urls, streamproxy.Config{
		SkipTLSVerify: cfg.DVR.SkipTLSVerify,
		HeaderTimeout: cfg.DVR.StreamTimeout,
	})

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewPingChecker("sqlite", db.PingContext, false))
	hm.RegisterChecker(health.NewPingChecker("cache", urls.Ping, cfg.Cache.Backend == "memory"))
	hm.RegisterChecker(health.NewServersChecker(locator.Servers, func() map[string]string {
		states := locator.Breakers()
		out := make(map[string]string, len(states))
		for name, st := range states {
			out[name] = string(st)
		}
		return out
	}))
	hm.RegisterChecker(health.NewPingChecker("sqlite_integrity", integrityCheck(db), true))

	srv := api.New(api.Deps{
		Config:  holder,
		Locator: locator,
		Cache:   urls,
		Store:   store,
		Auth:    authSvc,
		Stream:  stream,
		Health:  hm,
		Version: version.Version,
	})
	rt.apiHandler = srv.Handler()

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		rt.metricsHandler = mux
		rt.metricsAddr = cfg.Metrics.ListenAddr
	}

	rt.appliers = append(rt.appliers,
		func(next config.AppConfig) { locator.Update(archive.SettingsFromConfig(next)) },
		func(next config.AppConfig) { authSvc.Update(next.Auth) },
	)
	return rt, nil
}

func integrityCheck(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		problems, err := sqlite.VerifyIntegrity(ctx, db, false)
		if err != nil {
			return err
		}
		if len(problems) > 0 {
			return fmt.Errorf("integrity check: %s", problems[0])
		}
		return nil
	}
}
