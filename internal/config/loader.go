// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/dvrvod/internal/log"
)

// Environment keys. The auth keys keep the names operators already use.
const (
	EnvDataDir          = "DVRVOD_DATA_DIR"
	EnvLogLevel         = "DVRVOD_LOG_LEVEL"
	EnvListenAddr       = "DVRVOD_LISTEN"
	EnvDVRServers       = "DVRVOD_DVR_SERVERS"
	EnvDVRTimeout       = "DVRVOD_DVR_TIMEOUT"
	EnvDVRRetry         = "DVRVOD_DVR_RETRY"
	EnvDVRRetryBackoff  = "DVRVOD_DVR_RETRY_BACKOFF"
	EnvDVRSkipTLSVerify = "DVRVOD_DVR_SKIP_TLS_VERIFY"
	EnvDVRRateLimit     = "DVRVOD_DVR_RATE_LIMIT"
	EnvDVRRateBurst     = "DVRVOD_DVR_RATE_BURST"
	EnvDVRConcurrency   = "DVRVOD_DVR_CONCURRENCY"
	EnvCORSEnabled      = "DVRVOD_CORS_ENABLED"
	EnvCORSOrigins      = "DVRVOD_CORS_ORIGINS"
	EnvJWTSecret        = "JWT_SECRET"
	EnvTokenTTL         = "DVRVOD_TOKEN_TTL"
	EnvAdminUsername    = "ADMIN_USERNAME"
	EnvAdminPassword    = "ADMIN_PASSWORD"
	EnvUserUsername     = "USER_USERNAME"
	EnvUserPassword     = "USER_PASSWORD"
	EnvCacheBackend     = "DVRVOD_CACHE_BACKEND"
	EnvCacheTTL         = "DVRVOD_CACHE_TTL"
	EnvCachePath        = "DVRVOD_CACHE_PATH"
	EnvRedisAddr        = "DVRVOD_REDIS_ADDR"
	EnvRedisPassword    = "DVRVOD_REDIS_PASSWORD"
	EnvRedisDB          = "DVRVOD_REDIS_DB"
	EnvMetricsEnabled   = "DVRVOD_METRICS_ENABLED"
	EnvMetricsListen    = "DVRVOD_METRICS_LISTEN"
	EnvTracingEnabled   = "DVRVOD_TRACING_ENABLED"
	EnvTracingExporter  = "DVRVOD_TRACING_EXPORTER"
	EnvTracingEndpoint  = "DVRVOD_TRACING_ENDPOINT"
	EnvTracingSampling  = "DVRVOD_TRACING_SAMPLING_RATE"
	EnvRateLimitEnabled = "DVRVOD_RATELIMIT_ENABLED"
	EnvRateLimitReqs    = "DVRVOD_RATELIMIT_REQUESTS"
	EnvRateLimitWindow  = "DVRVOD_RATELIMIT_WINDOW"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader; configPath may be empty for ENV-only setups.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the YAML file this loader reads, if any.
func (l *Loader) Path() string {
	return l.configPath
}

// Load builds the configuration: defaults, then file, then environment, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if cfg.Auth.JWTSecret == DefaultJWTSecret {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("event", "config.default_secret").
			Msg("JWT secret is the built-in default; set JWT_SECRET in production")
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file over cfg. Unknown fields are fatal.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger := log.WithComponent("config")
			logger.Info().Str("path", path).Msg("config file not found, using defaults")
			return nil
		}
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.Server.ListenAddr = ParseString(EnvListenAddr, cfg.Server.ListenAddr)

	cfg.DVRServers = ParseList(EnvDVRServers, cfg.DVRServers)
	cfg.DVR.Timeout = ParseDuration(EnvDVRTimeout, cfg.DVR.Timeout)
	cfg.DVR.Retry = ParseInt(EnvDVRRetry, cfg.DVR.Retry)
	cfg.DVR.RetryBackoff = ParseDuration(EnvDVRRetryBackoff, cfg.DVR.RetryBackoff)
	cfg.DVR.SkipTLSVerify = ParseBool(EnvDVRSkipTLSVerify, cfg.DVR.SkipTLSVerify)
	cfg.DVR.RateLimit = ParseFloat(EnvDVRRateLimit, cfg.DVR.RateLimit)
	cfg.DVR.RateBurst = ParseInt(EnvDVRRateBurst, cfg.DVR.RateBurst)
	cfg.DVR.BatchConcurrency = ParseInt(EnvDVRConcurrency, cfg.DVR.BatchConcurrency)

	cfg.CORS.Enabled = ParseBool(EnvCORSEnabled, cfg.CORS.Enabled)
	cfg.CORS.AllowOrigins = ParseList(EnvCORSOrigins, cfg.CORS.AllowOrigins)

	cfg.Auth.JWTSecret = ParseString(EnvJWTSecret, cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = ParseDuration(EnvTokenTTL, cfg.Auth.TokenTTL)
	mergeUserEnv(cfg, RoleAdmin, EnvAdminUsername, EnvAdminPassword)
	mergeUserEnv(cfg, RoleUser, EnvUserUsername, EnvUserPassword)

	cfg.Cache.Backend = ParseString(EnvCacheBackend, cfg.Cache.Backend)
	cfg.Cache.TTL = ParseDuration(EnvCacheTTL, cfg.Cache.TTL)
	cfg.Cache.RedisAddr = ParseString(EnvRedisAddr, cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = ParseString(EnvRedisPassword, cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = ParseInt(EnvRedisDB, cfg.Cache.RedisDB)
	cfg.Cache.Path = ParseString(EnvCachePath, cfg.Cache.Path)

	cfg.Metrics.Enabled = ParseBool(EnvMetricsEnabled, cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = ParseString(EnvMetricsListen, cfg.Metrics.ListenAddr)

	cfg.Tracing.Enabled = ParseBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = ParseString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = ParseString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = ParseFloat(EnvTracingSampling, cfg.Tracing.SamplingRate)

	cfg.RateLimit.Enabled = ParseBool(EnvRateLimitEnabled, cfg.RateLimit.Enabled)
	cfg.RateLimit.Requests = ParseInt(EnvRateLimitReqs, cfg.RateLimit.Requests)
	cfg.RateLimit.Window = ParseDuration(EnvRateLimitWindow, cfg.RateLimit.Window)
}

// mergeUserEnv overrides the first configured user with the given role.
func mergeUserEnv(cfg *AppConfig, role, userKey, passKey string) {
	idx := -1
	for i, u := range cfg.Auth.Users {
		if u.Role == role {
			idx = i
			break
		}
	}
	if idx < 0 {
		if _, ok := os.LookupEnv(userKey); !ok {
			return
		}
		cfg.Auth.Users = append(cfg.Auth.Users, UserConfig{Role: role})
		idx = len(cfg.Auth.Users) - 1
	}
	u := &cfg.Auth.Users[idx]
	u.Username = ParseString(userKey, u.Username)
	u.Password = ParseString(passKey, u.Password)
}
