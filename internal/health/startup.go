// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dvrvod/internal/config"
	"github.com/ManuGH/dvrvod/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if cfg.Cache.Backend == "badger" && cfg.Cache.Path != "" {
		if err := checkDataDir(logger, cfg.Cache.Path); err != nil {
			return fmt.Errorf("cache directory check failed: %w", err)
		}
	}
	if len(cfg.DVRServers) == 0 {
		logger.Warn().Msg("no dvr servers in config; relying on the server store")
	}
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		logger.Warn().Msg("default jwt secret in use; set JWT_SECRET before exposing the gateway")
	}
	logger.Info().Msg("all startup checks passed")
	return nil
}

// checkDataDir creates the directory when missing and verifies it is writable.
func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}
