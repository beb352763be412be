// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/dvrvod/internal/config"
)

func TestMemoryCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0).(*memoryCache)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "REC001", "http://dvr1/REC001.mp4", time.Minute)
	got, ok := c.Get(ctx, "REC001")
	require.True(t, ok)
	assert.Equal(t, "http://dvr1/REC001.mp4", got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "REC001")
	assert.False(t, ok)

	assert.Equal(t, 1, c.deleteExpired())
	s := c.Stats(ctx)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Evictions)
	assert.Zero(t, s.CurrentSize)
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	c.Set(ctx, "a", "1", time.Hour)
	c.Set(ctx, "b", "2", time.Hour)

	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Clear(ctx)
	assert.Zero(t, c.Stats(ctx).CurrentSize)
	assert.NoError(t, c.Ping(ctx))
}

func TestMemoryCache_JanitorStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache(10 * time.Millisecond)
	c.Set(context.Background(), "k", "v", time.Millisecond)
	assert.Eventually(t, func() bool {
		return c.Stats(context.Background()).CurrentSize == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(ctx, "k", "v", time.Minute)
				c.Get(ctx, "k")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1600), c.Stats(ctx).Sets)
}

func TestNew_FallsBackToMemory(t *testing.T) {
	c := New(context.Background(), config.CacheConfig{Backend: "redis", RedisAddr: "127.0.0.1:1", TTL: time.Minute}, zerolog.Nop())
	defer c.Close()
	_, isMem := c.(*memoryCache)
	assert.True(t, isMem)
}
