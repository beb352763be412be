// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *ServerStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "dvrvod.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewServerStore(db)
}

func TestServerStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Add(ctx, "http://dvr1:8080/"))
	require.NoError(t, s.Add(ctx, "http://dvr2:8080"))
	assert.ErrorIs(t, s.Add(ctx, "http://dvr1:8080"), ErrServerExists)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://dvr1:8080", "http://dvr2:8080"}, list)

	require.NoError(t, s.Delete(ctx, "http://dvr1:8080"))
	assert.ErrorIs(t, s.Delete(ctx, "http://dvr1:8080"), ErrServerNotFound)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://dvr2:8080"}, list)
}

func TestServerStore_ReplaceKeepsOrderAndDedups(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)
	require.NoError(t, s.Add(ctx, "http://old"))

	require.NoError(t, s.Replace(ctx, []string{"http://c", "http://a", "http://c/", " ", "http://b"}))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://c", "http://a", "http://b"}, list)

	require.NoError(t, s.Add(ctx, "http://d"))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://d", list[len(list)-1])
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dvrvod.sqlite")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, NewServerStore(db).Add(context.Background(), "http://keep"))
	require.NoError(t, db.Close())

	db, err = Open(path, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()
	list, err := NewServerStore(db).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"http://keep"}, list)

	problems, err := VerifyIntegrity(context.Background(), db, false)
	require.NoError(t, err)
	assert.Nil(t, problems)
}
