// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gatewayclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dvrvod/internal/console"
)

type fakeCreds struct {
	token       string
	invalidated atomic.Int32
}

func (f *fakeCreds) Token() string { return f.token }
func (f *fakeCreds) Invalidate()   { f.invalidated.Add(1) }

func newTestClient(t *testing.T, h http.Handler, creds TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", WithCredentials(creds), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadScheme(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
}

func TestLookupOne_SendsRecordID(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/play", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success":true,"proxy_url":"/stream/A.mp4","message":"recording found"}`))
	})
	c := newTestClient(t, h, &fakeCreds{token: "tok"})

	payload, err := c.LookupOne(context.Background(), "A")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "A", gotBody["record_id"])
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "/stream/A.mp4", payload["proxy_url"])
}

func TestLookupMany_SendsRecordIDs(t *testing.T) {
	var gotBody struct {
		RecordIDs []string `json:"record_ids"`
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success":true,"results":[{"record_id":"A","found":true}]}`))
	})
	c := newTestClient(t, h, &fakeCreds{})

	payload, err := c.LookupMany(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, gotBody.RecordIDs)
	assert.Len(t, payload["results"], 1)
}

func TestLookupOne_NotFoundCarriesStatus(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"recording not found"}`))
	})
	c := newTestClient(t, h, nil)

	_, err := c.LookupOne(context.Background(), "A")
	var ue *console.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.Status)
	assert.Equal(t, "recording not found", ue.Message)
	assert.Equal(t, console.ReasonNotFound, console.ReasonFor(err))
}

func TestLookupOne_ErrorMessageSurfaces(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid record_id"}`))
	})
	c := newTestClient(t, h, nil)

	_, err := c.LookupOne(context.Background(), "A")
	assert.Equal(t, "invalid record_id", console.ReasonFor(err))
}

func TestUnauthorized_InvalidatesCredentials(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"令牌无效或已过期"}`))
	})
	creds := &fakeCreds{token: "stale"}
	c := newTestClient(t, h, creds)

	_, err := c.LookupMany(context.Background(), []string{"A", "B"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, console.ErrSessionExpired))
	assert.True(t, IsSessionExpired(err))
	assert.Equal(t, int32(1), creds.invalidated.Load())
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	require.NoError(t, err)

	_, err = c.LookupOne(context.Background(), "A")
	var ue *console.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, ue.Status)
	assert.NotEmpty(t, console.ReasonFor(err))
}

func TestFetch_ResolvesRelativeURL(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/A.mp4" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("video-bytes"))
	})
	c := newTestClient(t, h, nil)

	data, err := c.Fetch(context.Background(), "/stream/A.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, h, nil)

	_, err := c.Fetch(context.Background(), "/stream/A.mp4")
	var ue *console.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadGateway, ue.Status)
}

func TestResolve(t *testing.T) {
	c, err := New("http://gw.local:8080")
	require.NoError(t, err)

	assert.Equal(t, "http://gw.local:8080/stream/A.mp4", c.Resolve("/stream/A.mp4"))
	assert.Equal(t, "http://cdn.local/x.mp4", c.Resolve("http://cdn.local/x.mp4"))
}

func TestLoginAndMe(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"用户名或密码错误"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"token":      "jwt",
			"expires_at": exp,
			"user":       map[string]string{"username": body["username"], "role": "admin"},
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"user":{"username":"admin","role":"admin"}}`))
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	creds := &fakeCreds{}
	c := newTestClient(t, mux, creds)

	_, err := c.Login(context.Background(), "admin", "wrong")
	var ue *console.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "用户名或密码错误", ue.Message)

	login, err := c.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", login.Token)
	assert.True(t, login.ExpiresAt.Equal(exp))
	assert.Equal(t, User{Username: "admin", Role: "admin"}, login.User)

	creds.token = login.Token
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)

	require.NoError(t, c.Logout(context.Background()))
}
