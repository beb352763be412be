// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrServerExists   = errors.New("dvr server already registered")
	ErrServerNotFound = errors.New("dvr server not found")
)

// ServerStore persists the ordered DVR server list.
type ServerStore struct {
	db *sql.DB
}

func NewServerStore(db *sql.DB) *ServerStore {
	return &ServerStore{db: db}
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// List returns the servers in their configured order.
func (s *ServerStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM dvr_servers ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list dvr servers: %w", err)
	}
	defer rows.Close()

	servers := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan dvr server: %w", err)
		}
		servers = append(servers, u)
	}
	return servers, rows.Err()
}

// Replace swaps the whole list in one transaction.
func (s *ServerStore) Replace(ctx context.Context, servers []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dvr_servers`); err != nil {
		return fmt.Errorf("clear dvr servers: %w", err)
	}
	seen := map[string]bool{}
	pos := 0
	for _, u := range servers {
		u = normalizeURL(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		if _, err := tx.ExecContext(ctx, `INSERT INTO dvr_servers (url, position) VALUES (?, ?)`, u, pos); err != nil {
			return fmt.Errorf("insert dvr server: %w", err)
		}
		pos++
	}
	return tx.Commit()
}

// Add appends one server.
func (s *ServerStore) Add(ctx context.Context, url string) error {
	url = normalizeURL(url)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dvr_servers (url, position)
		 SELECT ?, COALESCE(MAX(position), -1) + 1 FROM dvr_servers WHERE true
		 ON CONFLICT(url) DO NOTHING`, url)
	if err != nil {
		return fmt.Errorf("add dvr server: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrServerExists
	}
	return nil
}

// Delete removes one server.
func (s *ServerStore) Delete(ctx context.Context, url string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dvr_servers WHERE url = ?`, normalizeURL(url))
	if err != nil {
		return fmt.Errorf("delete dvr server: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrServerNotFound
	}
	return nil
}
