// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package streamproxy relays recordings from the DVR server that holds them.
// Clients only ever see /stream/<record>.mp4; the upstream URL stays server side.
package streamproxy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/metrics"
)

// PathPrefix is where proxy URLs live.
const PathPrefix = "/stream/"

// Resolver maps a record id to its upstream URL.
type Resolver interface {
	Get(ctx context.Context, recordID string) (string, bool)
}

// hop-by-hop headers are never relayed.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// forwarded request headers.
var requestHeaders = []string{"Range", "If-Range", "If-Modified-Since", "If-None-Match"}

type Config struct {
	SkipTLSVerify bool
	// HeaderTimeout bounds the wait for upstream response headers. The body
	// itself is never timed out.
	HeaderTimeout time.Duration
	Transport     http.RoundTripper
}

type Handler struct {
	resolver Resolver
	client   *http.Client
	logger   zerolog.Logger
}

func New(resolver Resolver, cfg Config) *Handler {
	base := cfg.Transport
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify}, // #nosec G402 -- operator opt-in for self-signed DVRs
			ResponseHeaderTimeout: cfg.HeaderTimeout,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		}
	}
	return &Handler{
		resolver: resolver,
		client: &http.Client{
			Transport: otelhttp.NewTransport(base),
		},
		logger: xglog.WithComponent("streamproxy"),
	}
}

// URL is the public proxy path for a record id.
func URL(recordID string) string {
	return PathPrefix + recordID + ".mp4"
}

// RecordID extracts the record id from a "<id>.mp4" file name.
func RecordID(filename string) string {
	return strings.TrimSuffix(filename, ".mp4")
}

// ServeHTTP expects the chi URL parameter "filename".
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	recordID := RecordID(chi.URLParam(r, "filename"))
	ctx := xglog.ContextWithRecordID(r.Context(), recordID)
	logger := xglog.WithContext(ctx, h.logger)

	if recordID == "" {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	upstream, ok := h.resolver.Get(ctx, recordID)
	if !ok {
		logger.Warn().Str(xglog.FieldEvent, "stream.cache_miss").Msg("proxy url not found or expired")
		writeError(w, http.StatusNotFound, "recording not found or expired")
		return
	}

	method := http.MethodGet
	if r.Method == http.MethodHead {
		method = http.MethodHead
	}
	req, err := http.NewRequestWithContext(ctx, method, upstream, nil)
	if err != nil {
		logger.Error().Err(err).Msg("build upstream request")
		writeError(w, http.StatusInternalServerError, "failed to create request")
		return
	}
	for _, name := range requestHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error().Err(err).Str(xglog.FieldURL, upstream).Str(xglog.FieldEvent, "stream.upstream_failed").Msg("fetch from dvr failed")
		metrics.RecordStreamResponse(http.StatusBadGateway)
		writeError(w, http.StatusBadGateway, "failed to fetch video from DVR server")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	metrics.RecordStreamResponse(resp.StatusCode)

	if method == http.MethodHead {
		return
	}

	metrics.IncActiveStreams()
	defer metrics.DecActiveStreams()

	start := time.Now()
	n, err := io.Copy(flushWriter{w}, resp.Body)
	metrics.AddStreamBytes(n)
	ev := logger.Info()
	if err != nil && !errors.Is(err, context.Canceled) {
		ev = logger.Debug().Err(err)
	}
	ev.Str(xglog.FieldEvent, "stream.done").
		Int(xglog.FieldStatus, resp.StatusCode).
		Int64(xglog.FieldBytes, n).
		Dur(xglog.FieldDuration, time.Since(start)).
		Msg("stream finished")
}

func copyHeaders(dst, src http.Header) {
	for name, values := range src {
		dst[name] = append([]string(nil), values...)
	}
	for _, name := range hopHeaders {
		dst.Del(name)
	}
}

// flushWriter pushes each chunk to the client so players can start early.
type flushWriter struct {
	w http.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
	return n, err
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
