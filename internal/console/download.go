// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// DownloadState is the lifecycle position of one download.
type DownloadState string

const (
	DownloadPending DownloadState = "pending"
	DownloadSuccess DownloadState = "success"
	DownloadFailed  DownloadState = "failed"
)

// DownloadEvent reports a state change of one download.
type DownloadEvent struct {
	RecordID string
	State    DownloadState
	Path     string
	Bytes    int64
	Err      error
}

// Reason returns the operator facing failure text.
func (e DownloadEvent) Reason() string {
	if e.Err == nil {
		return ""
	}
	var de *DownloadError
	if errors.As(e.Err, &de) {
		return de.Reason()
	}
	return e.Err.Error()
}

// Fetcher retrieves a whole recording body. Non-2xx responses must be
// reported as *UpstreamError carrying the status.
type Fetcher interface {
	Fetch(ctx context.Context, proxyURL string) ([]byte, error)
}

// Saver persists a finished download under name and returns the final path.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// DirSaver writes files atomically into a directory.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(name string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// FileName is the on-disk name for a recording.
func FileName(recordID string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator || r == 0 {
			return '_'
		}
		return r
	}, recordID)
	if safe == "" || safe == "." || safe == ".." {
		safe = "_"
	}
	return safe + ".mp4"
}

// Coordinator runs independent downloads in the background.
type Coordinator struct {
	fetcher Fetcher
	saver   Saver
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// NewCoordinator creates a download coordinator.
func NewCoordinator(fetcher Fetcher, saver Saver) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		saver:   saver,
		logger:  xglog.WithComponent("download"),
	}
}

// Download starts fetching proxyURL and returns its event stream. The channel
// receives pending first, then exactly one terminal event, and is closed.
func (c *Coordinator) Download(ctx context.Context, recordID, proxyURL string) <-chan DownloadEvent {
	ch := make(chan DownloadEvent, 2)
	ch <- DownloadEvent{RecordID: recordID, State: DownloadPending}

	if proxyURL == "" {
		ch <- c.failure(recordID, 0, errors.New("no proxy url"))
		close(ch)
		return ch
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)
		ch <- c.run(ctx, recordID, proxyURL)
	}()
	return ch
}

// Wait blocks until every started download has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, recordID, proxyURL string) DownloadEvent {
	start := time.Now()
	data, err := c.fetcher.Fetch(ctx, proxyURL)
	if err != nil {
		status := 0
		var ue *UpstreamError
		if errors.As(err, &ue) {
			status = ue.Status
		}
		return c.failure(recordID, status, err)
	}
	path, err := c.saver.Save(FileName(recordID), data)
	if err != nil {
		return c.failure(recordID, 0, err)
	}
	c.logger.Info().
		Str(xglog.FieldEvent, "download.saved").
		Str(xglog.FieldRecordID, recordID).
		Str(xglog.FieldPath, path).
		Int(xglog.FieldBytes, len(data)).
		Dur(xglog.FieldDuration, time.Since(start)).
		Msg("recording saved")
	return DownloadEvent{RecordID: recordID, State: DownloadSuccess, Path: path, Bytes: int64(len(data))}
}

func (c *Coordinator) failure(recordID string, status int, err error) DownloadEvent {
	derr := &DownloadError{RecordID: recordID, Status: status, Err: err}
	c.logger.Warn().
		Str(xglog.FieldEvent, "download.failed").
		Str(xglog.FieldRecordID, recordID).
		Err(derr).
		Msg("download failed")
	return DownloadEvent{RecordID: recordID, State: DownloadFailed, Err: derr}
}
