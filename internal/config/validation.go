// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/dvrvod/internal/validate"
)

// Validate checks every field and reports all failures at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("DataDir", cfg.DataDir, false)
	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel), []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"})

	v.ListenAddr("Server.ListenAddr", cfg.Server.ListenAddr)
	v.MinDuration("Server.ShutdownTimeout", cfg.Server.ShutdownTimeout, time.Second)
	v.NonNegative("Server.MaxHeaderBytes", cfg.Server.MaxHeaderBytes)

	ValidateServers(v, cfg.DVRServers)
	v.MinDuration("DVR.Timeout", cfg.DVR.Timeout, 100*time.Millisecond)
	v.Range("DVR.Retry", cfg.DVR.Retry, 0, 10)
	v.MinDuration("DVR.RetryBackoff", cfg.DVR.RetryBackoff, 0)
	if cfg.DVR.RateLimit < 0 {
		v.AddError("DVR.RateLimit", "value cannot be negative", cfg.DVR.RateLimit)
	}
	if cfg.DVR.RateLimit > 0 {
		v.Positive("DVR.RateBurst", cfg.DVR.RateBurst)
	}
	v.Range("DVR.BatchConcurrency", cfg.DVR.BatchConcurrency, 1, 128)
	v.NonNegative("DVR.CircuitThreshold", cfg.DVR.CircuitThreshold)

	v.MinLength("Auth.JWTSecret", cfg.Auth.JWTSecret, 16)
	v.MinDuration("Auth.TokenTTL", cfg.Auth.TokenTTL, time.Minute)
	seen := map[string]bool{}
	for i, u := range cfg.Auth.Users {
		field := fmt.Sprintf("Auth.Users[%d]", i)
		v.NotEmpty(field+".Username", u.Username)
		v.NotEmpty(field+".Password", u.Password)
		v.OneOf(field+".Role", u.Role, []string{RoleAdmin, RoleUser})
		if seen[u.Username] {
			v.AddError(field+".Username", "duplicate username", u.Username)
		}
		seen[u.Username] = true
	}

	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{"memory", "redis", "badger"})
	v.MinDuration("Cache.TTL", cfg.Cache.TTL, time.Second)
	if cfg.Cache.Backend == "redis" {
		v.NotEmpty("Cache.RedisAddr", cfg.Cache.RedisAddr)
	}

	if cfg.Metrics.Enabled {
		v.ListenAddr("Metrics.ListenAddr", cfg.Metrics.ListenAddr)
	}
	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{"http", "grpc"})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			v.AddError("Tracing.SamplingRate", "must be between 0 and 1", cfg.Tracing.SamplingRate)
		}
	}
	if cfg.RateLimit.Enabled {
		v.Positive("RateLimit.Requests", cfg.RateLimit.Requests)
		v.MinDuration("RateLimit.Window", cfg.RateLimit.Window, time.Second)
	}

	return v.Err()
}

// ValidateServers checks a DVR server list; admin edits reuse it.
func ValidateServers(v *validate.Validator, servers []string) {
	seen := map[string]bool{}
	for i, s := range servers {
		field := fmt.Sprintf("DVRServers[%d]", i)
		v.URL(field, s, []string{"http", "https"})
		key := strings.TrimRight(s, "/")
		if seen[key] {
			v.AddError(field, "duplicate server", s)
		}
		seen[key] = true
	}
}
