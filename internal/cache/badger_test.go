// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dvrvod/internal/config"
)

func TestBadgerCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")

	c, err := OpenBadgerCache(dir, zerolog.Nop())
	require.NoError(t, err)
	c.Set(ctx, "REC001", "http://dvr1/REC001.mp4", time.Hour)
	require.NoError(t, c.Close())

	c, err = OpenBadgerCache(dir, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	got, ok := c.Get(ctx, "REC001")
	require.True(t, ok)
	assert.Equal(t, "http://dvr1/REC001.mp4", got)

	_, ok = c.Get(ctx, "REC404")
	assert.False(t, ok)

	s := c.Stats(ctx)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.CurrentSize)
}

func TestBadgerCache_DeleteClear(t *testing.T) {
	ctx := context.Background()
	c, err := OpenBadgerCache(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	c.Set(ctx, "a", "1", time.Hour)
	c.Set(ctx, "b", "2", 0)
	assert.Equal(t, 2, c.Stats(ctx).CurrentSize)

	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Clear(ctx)
	assert.Zero(t, c.Stats(ctx).CurrentSize)
	assert.NoError(t, c.Ping(ctx))
}

func TestBadgerCache_PingAfterClose(t *testing.T) {
	c, err := OpenBadgerCache(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

func TestNew_Badger(t *testing.T) {
	c := New(context.Background(), config.CacheConfig{Backend: "badger", Path: t.TempDir(), TTL: time.Minute}, zerolog.Nop())
	defer c.Close()
	_, isBadger := c.(*BadgerCache)
	assert.True(t, isBadger)
}
