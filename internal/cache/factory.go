// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/dvrvod/internal/config"
)

// New builds the configured backend. An unreachable Redis or unusable badger
// directory falls back to memory so the gateway still serves single-instance
// traffic.
func New(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) Cache {
	if cfg.Backend == "redis" {
		rc, err := NewRedisCache(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, logger)
		if err == nil {
			return rc
		}
		logger.Warn().Err(err).Str("event", "cache.fallback").Msg("redis unavailable, using in-memory cache")
	}
	if cfg.Backend == "badger" {
		bc, err := OpenBadgerCache(cfg.Path, logger)
		if err == nil {
			return bc
		}
		logger.Warn().Err(err).Str("event", "cache.fallback").Msg("badger cache unavailable, using in-memory cache")
	}
	return NewMemoryCache(janitorInterval(cfg.TTL))
}

func janitorInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 10*time.Minute {
		return 5 * time.Minute
	}
	return ttl / 2
}
