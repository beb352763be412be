// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Reasons shown to operators. They are domain strings and stay fixed
// regardless of the console locale.
const (
	ReasonNotFound    = "未找到"
	ReasonQueryFailed = "查询失败"
)

var (
	// ErrEmptyInput means no identifier survived parsing; no lookup is issued.
	ErrEmptyInput = errors.New("console: no valid record identifiers")
	// ErrSessionExpired is reported by the lookup collaborator on 401 responses.
	ErrSessionExpired = errors.New("console: session expired")
	// ErrUnknownKey is returned for keys that are not part of the current result set.
	ErrUnknownKey = errors.New("console: unknown result key")
	// ErrNotPlayable guards playback and downloads of results without a proxy URL.
	ErrNotPlayable = errors.New("console: result is not playable")
	// ErrSuperseded is returned by Submit when a newer submission replaced its results.
	ErrSuperseded = errors.New("console: submission superseded by a newer query")
)

// UpstreamError describes a failed gateway call.
type UpstreamError struct {
	Op      string
	Status  int    // HTTP status, 0 for transport failures
	Message string // message field of the error body, if any
	Err     error  // nested cause (ErrSessionExpired, net.Error, ...)
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("upstream: %s", e.Op)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// DownloadError is the failure reported by a download event.
type DownloadError struct {
	RecordID string
	Status   int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %s", e.RecordID, e.Reason())
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Reason is the operator facing part of the error: "<code> <text>" for HTTP
// failures, the cause otherwise.
func (e *DownloadError) Reason() string {
	if e.Status > 0 {
		return strings.TrimSpace(fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)))
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// ReasonFor maps a lookup failure to the reason stored on the failed results.
func ReasonFor(err error) string {
	if err == nil {
		return ReasonQueryFailed
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		if ue.Status == http.StatusNotFound {
			return ReasonNotFound
		}
		if ue.Message != "" {
			return ue.Message
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return ReasonQueryFailed
}
