// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command daemon runs the dvrvod recording gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/dvrvod/internal/config"
	"github.com/ManuGH/dvrvod/internal/daemon"
	"github.com/ManuGH/dvrvod/internal/health"
	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/version"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

// resolveConfigPath prefers the explicit flag, then ${DVRVOD_DATA_DIR}/config.yaml
// when it exists, so admin edits persist across restarts.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
	if dataDir == "" {
		dataDir = config.Defaults().DataDir
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "dvrvod",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := resolveConfigPath(*configPath)
	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "dvrvod",
		Version: version.Version,
	})
	logger = xglog.WithComponent("daemon")

	source := "env+defaults"
	if effectiveConfigPath != "" {
		source = "file"
	}
	masked := make([]string, 0, len(cfg.DVRServers))
	for _, s := range cfg.DVRServers {
		masked = append(masked, maskURL(s))
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", effectiveConfigPath).
		Strs("dvr_servers", masked).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}

	// An empty path still gets a manager so admin edits can be written once
	// the operator creates a config file under the data dir.
	savePath := effectiveConfigPath
	if savePath == "" {
		savePath = filepath.Join(cfg.DataDir, "config.yaml")
	}
	holder := config.NewHolder(cfg, loader, config.NewManager(savePath))

	rt, err := buildRuntime(ctx, holder)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.wiring_failed").Msg("failed to build gateway")
	}

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:         logger,
		APIHandler:     rt.apiHandler,
		MetricsHandler: rt.metricsHandler,
		MetricsAddr:    rt.metricsAddr,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.manager_failed").Msg("failed to create daemon manager")
	}
	for _, h := range rt.hooks {
		mgr.RegisterShutdownHook(h.name, h.fn)
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.String()).
		Str("listen", cfg.Server.ListenAddr).
		Int("dvr_servers", len(cfg.DVRServers)).
		Msg("starting dvrvod gateway")

	app := daemon.NewApp(logger, mgr, holder, rt.appliers...)
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "shutdown.error").Msg("gateway stopped with error")
		os.Exit(1)
	}
	logger.Info().Str("event", "shutdown.complete").Msg("gateway stopped")
}
