// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestSession(lk Lookup, opts ...SessionOption) *Session {
	return NewSession(lk, NewCoordinator(&fakeFetcher{body: []byte("x")}, DirSaver{}), opts...)
}

func TestSession_SubmitEmptyIssuesNoCall(t *testing.T) {
	lk := &fakeLookup{}
	s := newTestSession(lk)

	_, err := s.Submit(context.Background(), " \n\t\n")
	assert.ErrorIs(t, err, ErrEmptyInput)
	one, many := lk.calls()
	assert.Zero(t, one+many)
}

// Scenario: single found, play, then stop.
func TestSession_SingleFoundPlayStop(t *testing.T) {
	lk := &fakeLookup{
		one: func(context.Context, string) (Payload, error) {
			return Payload{"success": true, "proxy_url": "/stream/REC001.mp4"}, nil
		},
	}
	s := newTestSession(lk)

	snap, err := s.Submit(context.Background(), "REC001")
	require.NoError(t, err)
	require.Len(t, snap.Results, 1)
	assert.False(t, snap.Busy)

	snap, err = s.Toggle("REC001")
	require.NoError(t, err)
	assert.True(t, snap.Results[0].Playing)

	snap, err = s.Toggle("REC001")
	require.NoError(t, err)
	assert.False(t, snap.Results[0].Playing)
}

func TestSession_DownloadRefusesNotFound(t *testing.T) {
	lk := &fakeLookup{
		one: func(context.Context, string) (Payload, error) {
			return Payload{"success": false, "message": "recording not found"}, nil
		},
	}
	s := newTestSession(lk)
	_, err := s.Submit(context.Background(), "REC404")
	require.NoError(t, err)

	_, err = s.Download(context.Background(), "REC404")
	assert.ErrorIs(t, err, ErrNotPlayable)
	_, err = s.Download(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestSession_StaleResponseSuppressed(t *testing.T) {
	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	lk := &fakeLookup{
		one: func(_ context.Context, id string) (Payload, error) {
			if id == "SLOW" {
				close(slowStarted)
				<-slowRelease
			}
			return Payload{"success": true, "proxy_url": "/stream/" + id + ".mp4"}, nil
		},
	}
	s := newTestSession(lk)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "SLOW")
		errCh <- err
	}()
	<-slowStarted

	snap, err := s.Submit(context.Background(), "FAST")
	require.NoError(t, err)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "FAST", snap.Results[0].RecordID)

	close(slowRelease)
	assert.ErrorIs(t, <-errCh, ErrSuperseded)

	final := s.Snapshot()
	require.Len(t, final.Results, 1)
	assert.Equal(t, "FAST", final.Results[0].RecordID)
	assert.False(t, final.Busy)
}

func TestSession_NewSubmissionClearsResults(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	lk := &fakeLookup{
		one: func(_ context.Context, id string) (Payload, error) {
			if id == "SECOND" {
				started <- struct{}{}
				<-release
			}
			return Payload{"success": true, "proxy_url": "/stream/" + id + ".mp4"}, nil
		},
	}
	s := newTestSession(lk)
	_, err := s.Submit(context.Background(), "FIRST")
	require.NoError(t, err)
	_, err = s.Toggle("FIRST")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Submit(context.Background(), "SECOND")
	}()
	<-started

	snap := s.Snapshot()
	assert.Empty(t, snap.Results)
	assert.True(t, snap.Busy)

	close(release)
	<-done
}

func TestSession_ExpiredHook(t *testing.T) {
	var expired atomic.Int32
	lk := &fakeLookup{
		one: func(context.Context, string) (Payload, error) {
			return nil, &UpstreamError{Op: "lookup", Status: 401, Message: "token expired", Err: ErrSessionExpired}
		},
	}
	s := newTestSession(lk, OnSessionExpired(func() { expired.Add(1) }))

	snap, err := s.Submit(context.Background(), "REC001")
	require.NoError(t, err)
	assert.Equal(t, "token expired", snap.Results[0].Error)
	assert.Equal(t, int32(1), expired.Load())
}

func TestSession_SubscribeReceivesLatest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	lk := &fakeLookup{
		one: func(context.Context, string) (Payload, error) {
			return Payload{"success": true, "proxy_url": "/stream/A.mp4"}, nil
		},
	}
	s := newTestSession(lk)
	ch, cancel := s.Subscribe()
	defer cancel()

	initial := <-ch
	assert.Zero(t, initial.Generation)

	_, err := s.Submit(context.Background(), "A")
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, uint64(1), snap.Generation)
		assert.Len(t, snap.Results, 1)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
	s.Close()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestSession_BusyClearsWithResults(t *testing.T) {
	lk := &fakeLookup{
		many: func(_ context.Context, ids []string) (Payload, error) {
			items := make([]any, 0, len(ids))
			for _, id := range ids {
				items = append(items, map[string]any{"record_id": id, "found": true, "proxy_url": "/stream/" + id + ".mp4"})
			}
			return Payload{"success": true, "results": items}, nil
		},
	}
	s := newTestSession(lk)
	var seen []Snapshot
	s.published = func(snap Snapshot) { seen = append(seen, snap) }

	_, err := s.Submit(context.Background(), "REC001\nREC002")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Busy)
	assert.Empty(t, seen[0].Results)
	assert.False(t, seen[1].Busy)
	assert.Len(t, seen[1].Results, 2)
	for _, snap := range seen {
		if !snap.Busy {
			assert.NotEmpty(t, snap.Results, "idle snapshot published before results")
		}
	}
}
