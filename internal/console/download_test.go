// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func drain(ch <-chan DownloadEvent) []DownloadEvent {
	var evs []DownloadEvent
	for ev := range ch {
		evs = append(evs, ev)
	}
	return evs
}

func TestDownload_Success(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	c := NewCoordinator(&fakeFetcher{body: []byte("mp4-bytes")}, DirSaver{Dir: dir})
	evs := drain(c.Download(context.Background(), "REC001", "/stream/REC001.mp4"))

	require.Len(t, evs, 2)
	assert.Equal(t, DownloadPending, evs[0].State)
	assert.Equal(t, DownloadSuccess, evs[1].State)
	assert.Equal(t, int64(9), evs[1].Bytes)
	assert.Equal(t, filepath.Join(dir, "REC001.mp4"), evs[1].Path)

	data, err := os.ReadFile(filepath.Join(dir, "REC001.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
}

func TestDownload_HTTPFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	fetch := &fakeFetcher{err: &UpstreamError{Op: "fetch", Status: 404}}
	c := NewCoordinator(fetch, DirSaver{Dir: dir})
	evs := drain(c.Download(context.Background(), "REC001", "/stream/REC001.mp4"))

	require.Len(t, evs, 2)
	assert.Equal(t, DownloadFailed, evs[1].State)
	assert.Equal(t, "404 Not Found", evs[1].Reason())
	_, err := os.Stat(filepath.Join(dir, "REC001.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_EmptyURLFailsWithoutFetch(t *testing.T) {
	fetch := &fakeFetcher{err: errors.New("must not be called"), gate: make(chan struct{})}
	c := NewCoordinator(fetch, DirSaver{Dir: t.TempDir()})
	evs := drain(c.Download(context.Background(), "REC001", ""))

	require.Len(t, evs, 2)
	assert.Equal(t, DownloadFailed, evs[1].State)
	assert.Equal(t, "no proxy url", evs[1].Reason())
}

func TestDownload_ConcurrentIndependent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gate := make(chan struct{})
	c := NewCoordinator(&fakeFetcher{body: []byte("x"), gate: gate}, DirSaver{Dir: t.TempDir()})
	a := c.Download(context.Background(), "A", "/stream/A.mp4")
	b := c.Download(context.Background(), "B", "/stream/B.mp4")

	assert.Equal(t, DownloadPending, (<-a).State)
	assert.Equal(t, DownloadPending, (<-b).State)
	close(gate)
	c.Wait()

	assert.Equal(t, DownloadSuccess, (<-a).State)
	assert.Equal(t, DownloadSuccess, (<-b).State)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "REC001.mp4", FileName("REC001"))
	assert.Equal(t, ".._etc_passwd.mp4", FileName("../etc/passwd"))
	assert.Equal(t, "_.mp4", FileName(".."))
}
