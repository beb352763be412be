// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package gatewayclient talks to the dvrvod gateway on behalf of the console.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/dvrvod/internal/console"
	xglog "github.com/ManuGH/dvrvod/internal/log"
)

const maxErrorBody = 64 << 10

// TokenSource provides the bearer token and is told when the gateway rejects it.
type TokenSource interface {
	Token() string
	Invalidate()
}

// Client implements console.Lookup and console.Fetcher against /api/play and /stream.
type Client struct {
	base  *url.URL
	http  *http.Client
	creds TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCredentials attaches the token source used for Authorization headers.
func WithCredentials(ts TokenSource) Option {
	return func(c *Client) { c.creds = ts }
}

// New creates a client for the gateway at base.
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway url %q: scheme must be http or https", base)
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve turns a gateway relative proxy URL into an absolute one.
func (c *Client) Resolve(proxyURL string) string {
	ref, err := url.Parse(proxyURL)
	if err != nil {
		return proxyURL
	}
	return c.base.ResolveReference(ref).String()
}

// LookupOne asks the gateway for a single recording.
func (c *Client) LookupOne(ctx context.Context, recordID string) (console.Payload, error) {
	return c.play(ctx, "lookup", map[string]any{"record_id": recordID})
}

// LookupMany asks the gateway for several recordings in one request.
func (c *Client) LookupMany(ctx context.Context, recordIDs []string) (console.Payload, error) {
	return c.play(ctx, "batch lookup", map[string]any{"record_ids": recordIDs})
}

func (c *Client) play(ctx context.Context, op string, body map[string]any) (console.Payload, error) {
	var out console.Payload
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/play", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Fetch downloads the whole body behind proxyURL.
func (c *Client) Fetch(ctx context.Context, proxyURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Resolve(proxyURL), nil)
	if err != nil {
		return nil, &console.UpstreamError{Op: "download", Err: err}
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &console.UpstreamError{Op: "download", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError("download", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &console.UpstreamError{Op: "download", Err: err}
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &console.UpstreamError{Op: op, Err: err}
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return &console.UpstreamError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &console.UpstreamError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	logger := xglog.FromContext(ctx)
	logger.Debug().
		Str(xglog.FieldEvent, "gateway.response").
		Str(xglog.FieldPath, path).
		Int(xglog.FieldStatus, resp.StatusCode).
		Dur(xglog.FieldDuration, time.Since(start)).
		Msg("gateway call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &console.UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.creds == nil {
		return
	}
	if tok := c.creds.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// statusError converts a non-2xx response. 401 drops the stored credentials.
func (c *Client) statusError(op string, resp *http.Response) error {
	ue := &console.UpstreamError{
		Op:      op,
		Status:  resp.StatusCode,
		Message: errorMessage(resp.Body),
	}
	if resp.StatusCode == http.StatusUnauthorized {
		ue.Err = console.ErrSessionExpired
		if c.creds != nil {
			c.creds.Invalidate()
		}
	}
	return ue
}

// errorMessage extracts "message" or "error" from a JSON error body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// IsSessionExpired reports whether err came from a 401 response.
func IsSessionExpired(err error) bool {
	return errors.Is(err, console.ErrSessionExpired)
}
