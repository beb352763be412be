// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package credentials keeps the console's gateway token for the lifetime of
// the process and mirrors it to a file between runs.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// Credentials is the persisted login state.
type Credentials struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Valid reports whether a token is present and not expired at now.
func (c Credentials) Valid(now time.Time) bool {
	if c.Token == "" {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

// Store is the process wide credential cell. The zero path keeps it in memory only.
type Store struct {
	mu     sync.RWMutex
	path   string
	cur    Credentials
	now    func() time.Time
	logger zerolog.Logger
}

// NewStore creates an empty store backed by path.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		now:    time.Now,
		logger: xglog.WithComponent("credentials"),
	}
}

// DefaultPath is the credential file under the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dvrvod", "credentials.json")
}

// Load reads the persisted credentials. A missing file leaves the store empty.
// Expired credentials are dropped.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.Valid(s.now()) {
		s.logger.Info().Str(xglog.FieldEvent, "credentials.expired").Msg("stored session expired")
		return nil
	}
	s.cur = c
	return nil
}

// Get returns the current credentials.
func (s *Store) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Token returns the bearer token, or "" when logged out or expired.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.cur.Valid(s.now()) {
		return ""
	}
	return s.cur.Token
}

// Set replaces the credentials and persists them atomically.
func (s *Store) Set(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = c
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Invalidate forgets the credentials and removes the persisted file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = Credentials{}
	if s.path == "" {
		return
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "credentials.remove_failed").Msg("failed to remove credentials file")
		return
	}
	s.logger.Info().Str(xglog.FieldEvent, "credentials.invalidated").Msg("session credentials cleared")
}
