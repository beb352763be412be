// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dvrvod/internal/config"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }
func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1")
	assert.True(t, m.Ready(context.Background()).Ready)

	m.RegisterChecker(&mockChecker{name: "db", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "cache", status: StatusDegraded})
	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(NewPingChecker("sqlite", func(context.Context) error { return errors.New("closed") }, false))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "closed", body.Checks["sqlite"].Error)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPingChecker_Optional(t *testing.T) {
	c := NewPingChecker("redis", func(context.Context) error { return errors.New("down") }, true)
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	c = NewPingChecker("redis", func(context.Context) error { return nil }, true)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
}

func TestServersChecker(t *testing.T) {
	none := NewServersChecker(func(context.Context) []string { return nil }, nil)
	assert.Equal(t, StatusUnhealthy, none.Check(context.Background()).Status)

	tripped := NewServersChecker(
		func(context.Context) []string { return []string{"a", "b"} },
		func() map[string]string { return map[string]string{"a": "open", "b": "closed"} },
	)
	res := tripped.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Message, "1 of 2")
}

func TestPerformStartupChecks_CreatesDataDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "data")

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPerformStartupChecks_FileInTheWay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	cfg := config.Defaults()
	cfg.DataDir = path

	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}
