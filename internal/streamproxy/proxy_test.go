// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package streamproxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Get(_ context.Context, id string) (string, bool) {
	u, ok := m[id]
	return u, ok
}

func router(h http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/stream/{filename}", h)
	r.Method(http.MethodHead, "/stream/{filename}", h)
	return r
}

func decodeError(t *testing.T, body io.Reader) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	return payload["error"]
}

func TestServeHTTP_ForwardsRangeAndCopiesResponse(t *testing.T) {
	var gotRange string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Range", "bytes 0-3/100")
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("abcd"))
	}))
	defer upstream.Close()

	h := New(mapResolver{"rec1": upstream.URL + "/rec1.mp4"}, Config{})
	srv := httptest.NewServer(router(h))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/stream/rec1.mp4", nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=0-3")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "bytes=0-3", gotRange)
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 0-3/100", resp.Header.Get("Content-Range"))
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, "abcd", string(body))
}

func TestServeHTTP_UnknownRecord(t *testing.T) {
	h := New(mapResolver{}, Config{})
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/nope.mp4", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "recording not found or expired", decodeError(t, rec.Body))
}

func TestServeHTTP_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	dead := upstream.URL
	upstream.Close()

	h := New(mapResolver{"rec": dead + "/rec.mp4"}, Config{})
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/rec.mp4", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "failed to fetch video from DVR server", decodeError(t, rec.Body))
}

func TestServeHTTP_HeadSkipsBody(t *testing.T) {
	var method string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	h := New(mapResolver{"rec": upstream.URL + "/rec.mp4"}, Config{})
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/stream/rec.mp4", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.MethodHead, method)
	assert.Empty(t, rec.Body.String())
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "abc", RecordID("abc.mp4"))
	assert.Equal(t, "abc", RecordID("abc"))
	assert.Equal(t, "/stream/abc.mp4", URL("abc"))
}
