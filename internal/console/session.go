// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// Snapshot is the state a front-end renders.
type Snapshot struct {
	Generation uint64
	Busy       bool
	Results    []Result
}

// Session is the presentation boundary of the console. All methods are safe
// for concurrent use.
type Session struct {
	mu         sync.Mutex
	dispatcher *Dispatcher
	playback   *Controller
	downloads  *Coordinator
	generation uint64
	inflight   int
	subs       map[int]chan Snapshot
	published  func(Snapshot) // sees every snapshot, including ones subscribers skip
	nextSub    int
	onExpired  func()
	logger     zerolog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// OnSessionExpired registers the hook invoked when a lookup reports ErrSessionExpired.
func OnSessionExpired(fn func()) SessionOption {
	return func(s *Session) { s.onExpired = fn }
}

// NewSession wires a session around lookup and the download coordinator.
func NewSession(lookup Lookup, downloads *Coordinator, opts ...SessionOption) *Session {
	s := &Session{
		playback:  NewController(),
		downloads: downloads,
		subs:      map[int]chan Snapshot{},
		logger:    xglog.WithComponent("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatcher = NewDispatcher(lookup, WithErrorObserver(s.lookupFailed))
	return s
}

// Submit parses text, runs the lookup and installs the results. A submission
// overtaken by a newer one returns ErrSuperseded and leaves the newer state intact.
// Busy clears in the same transition that installs the results.
func (s *Session) Submit(ctx context.Context, text string) (Snapshot, error) {
	ids, err := ParseIdentifiers(text)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.inflight++
	s.playback.Replace(nil)
	s.publishLocked()
	s.mu.Unlock()

	results := s.dispatcher.Dispatch(ctx, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if gen != s.generation {
		if s.inflight == 0 {
			s.publishLocked()
		}
		s.logger.Debug().
			Str(xglog.FieldEvent, "session.stale").
			Uint64("generation", gen).
			Uint64("current", s.generation).
			Msg("discarding stale lookup response")
		return s.snapshotLocked(), ErrSuperseded
	}
	s.playback.Replace(results)
	s.publishLocked()
	return s.snapshotLocked(), nil
}

// Toggle flips playback of the row identified by key.
func (s *Session) Toggle(key string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.playback.Toggle(key); err != nil {
		return s.snapshotLocked(), err
	}
	s.publishLocked()
	return s.snapshotLocked(), nil
}

// Download starts a download of the row identified by key.
func (s *Session) Download(ctx context.Context, key string) (<-chan DownloadEvent, error) {
	s.mu.Lock()
	r, ok := s.playback.Get(key)
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownKey
	}
	if !r.Playable() {
		return nil, ErrNotPlayable
	}
	return s.downloads.Download(ctx, r.RecordID, r.ProxyURL), nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers skip intermediate states.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops playback, closes subscribers and waits for downloads.
func (s *Session) Close() {
	s.mu.Lock()
	s.playback.Stop()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
	s.downloads.Wait()
}

func (s *Session) lookupFailed(err error) {
	if errors.Is(err, ErrSessionExpired) && s.onExpired != nil {
		s.onExpired()
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Generation: s.generation,
		Busy:       s.inflight > 0,
		Results:    s.playback.Results(),
	}
}

func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	if s.published != nil {
		s.published(snap)
	}
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
