// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	s := NewStore(path)
	require.NoError(t, s.Set(Credentials{Token: "tok", ExpiresAt: exp, Username: "admin", Role: "admin"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := NewStore(path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, "tok", loaded.Token())
	assert.Equal(t, "admin", loaded.Get().Username)
	assert.True(t, loaded.Get().ExpiresAt.Equal(exp))
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, s.Load())
	assert.Empty(t, s.Token())
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, NewStore(path).Load())
}

func TestStore_LoadDropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s := NewStore(path)
	require.NoError(t, s.Set(Credentials{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)}))

	loaded := NewStore(path)
	require.NoError(t, loaded.Load())
	assert.Empty(t, loaded.Get().Token)
}

func TestStore_TokenHonoursExpiry(t *testing.T) {
	s := NewStore("")
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(Credentials{Token: "tok", ExpiresAt: now.Add(time.Minute)}))
	assert.Equal(t, "tok", s.Token())

	now = now.Add(2 * time.Minute)
	assert.Empty(t, s.Token())
}

func TestStore_InvalidateRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s := NewStore(path)
	require.NoError(t, s.Set(Credentials{Token: "tok"}))

	s.Invalidate()

	assert.Empty(t, s.Token())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// second call on a missing file is fine
	s.Invalidate()
}
