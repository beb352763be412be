// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlay_Single(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/play", map[string]any{"record_id": "A1"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"proxy_url":"/stream/A1.mp4","message":"recording found"}`, rec.Body.String())

	cached, ok := f.cache.Get(context.Background(), "A1")
	require.True(t, ok)
	assert.Equal(t, "http://dvr1.local/A1.mp4", cached)
}

func TestPlay_SingleNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/play", map[string]any{"record_id": "ZZ"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"recording not found"}`, rec.Body.String())
}

func TestPlay_MissingID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/play", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "record_id is required", decode(t, rec)["message"])
	assert.Zero(t, f.locator.calls.Load())
}

func TestPlay_RejectsPathCharacters(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/play", map[string]any{"record_id": "../etc/passwd"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.locator.calls.Load())
}

func TestPlay_QueryAndForm(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/play?record_id=A1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/play", strings.NewReader("record_id=B2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/stream/B2.mp4", decode(t, rec)["proxy_url"])
}

func TestPlay_InvalidJSON(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/play", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "invalid request")
}

func TestPlay_BatchKeepsOrder(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/play", map[string]any{"record_ids": []string{"B2", "X", "A1", "B2"}}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"message": "batch query completed",
		"results": [
			{"record_id":"B2","found":true,"proxy_url":"/stream/B2.mp4"},
			{"record_id":"X","found":false},
			{"record_id":"A1","found":true,"proxy_url":"/stream/A1.mp4"},
			{"record_id":"B2","found":true,"proxy_url":"/stream/B2.mp4"}
		]
	}`, rec.Body.String())
	assert.Equal(t, int32(4), f.locator.calls.Load())
}

func TestPlay_BatchTimeout(t *testing.T) {
	f := newFixture(t)
	f.locator.block = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/play", strings.NewReader(`{"record_ids":["A1","B2"]}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "request timeout", body["message"])
	assert.Empty(t, body["results"])
}

func TestValidRecordID(t *testing.T) {
	for _, id := range []string{"A1", "2024-01-01_ch3", "rec.part1"} {
		assert.True(t, validRecordID(id), id)
	}
	for _, id := range []string{"", ".", "..", "a/b", `a\b`, "a b", "a?b", "a%2f", strings.Repeat("x", 129)} {
		assert.False(t, validRecordID(id), id)
	}
}
