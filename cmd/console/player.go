// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// player runs at most one external player process. An empty command only
// prints the stream URL.
type player struct {
	command []string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	logger zerolog.Logger
}

func newPlayer(command string) *player {
	return &player{
		command: strings.Fields(command),
		logger:  xglog.WithComponent("player"),
	}
}

// Start stops the current process, if any, and opens url.
func (p *player) Start(ctx context.Context, url string) error {
	p.Stop()
	if len(p.command) == 0 {
		return nil
	}

	pctx, cancel := context.WithCancel(ctx)
	args := append(append([]string(nil), p.command[1:]...), url)
	cmd := exec.CommandContext(pctx, p.command[0], args...) // #nosec G204 -- operator configured player
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start player: %w", err)
	}

	done := make(chan struct{})
	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil && pctx.Err() == nil {
			p.logger.Warn().Err(err).Str(xglog.FieldEvent, "player.exit").Msg("player exited with error")
		}
	}()
	return nil
}

// Stop terminates the running player and waits for it to exit.
func (p *player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
