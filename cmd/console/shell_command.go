// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/ManuGH/dvrvod/internal/console"
)

func newShellCommand(ctx *commandContext) *cobra.Command {
	var dir, playerCmd string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive console: paste ids (one per line, empty line submits), play and download rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, client, err := ctx.newSession(dir)
			if err != nil {
				return err
			}
			sh := &shell{
				session: session,
				resolve: client.Resolve,
				player:  newPlayer(playerCmd),
				p:       ctx.printer(),
				out:     &syncWriter{w: cmd.OutOrStdout()},
			}
			return sh.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Download directory")
	cmd.Flags().StringVar(&playerCmd, "player", envOr("DVRVOD_PLAYER", ""), "Player command, e.g. \"mpv --force-window\"; empty prints the URL")
	return cmd
}

// syncWriter serializes writes from the prompt loop and download goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Println(a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, a...)
}

type shell struct {
	session *console.Session
	resolve func(string) string
	player  *player
	p       *message.Printer
	out     *syncWriter

	pending  []string
	printers sync.WaitGroup
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	defer func() {
		sh.player.Stop()
		sh.session.Close()
		sh.printers.Wait()
	}()

	sh.out.Println(sh.p.Sprintf(lblShellHelp))
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := sh.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	sh.flush(ctx)
	return nil
}

// handle processes one input line and reports whether the shell should exit.
func (sh *shell) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		sh.flush(ctx)
		return false
	}

	fields := strings.Fields(trimmed)
	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		sh.out.Println(sh.p.Sprintf(lblShellHelp))
	case "list":
		sh.out.Println(renderResults(sh.p, sh.session.Snapshot().Results))
	case "q":
		sh.submit(ctx, strings.Join(fields[1:], "\n"))
	case "play":
		if len(fields) == 2 {
			sh.toggle(ctx, fields[1])
			return false
		}
		sh.pending = append(sh.pending, line)
	case "dl":
		if len(fields) == 2 {
			sh.download(ctx, fields[1])
			return false
		}
		sh.pending = append(sh.pending, line)
	default:
		sh.pending = append(sh.pending, line)
	}
	return false
}

func (sh *shell) flush(ctx context.Context) {
	if len(sh.pending) == 0 {
		return
	}
	text := strings.Join(sh.pending, "\n")
	sh.pending = nil
	sh.submit(ctx, text)
}

func (sh *shell) submit(ctx context.Context, text string) {
	ids, err := console.ParseIdentifiers(text)
	if err != nil {
		sh.out.Println(err)
		return
	}
	sh.player.Stop()
	sh.out.Println(sh.p.Sprintf(lblBusy, len(ids)))

	snap, err := sh.session.Submit(ctx, text)
	switch {
	case errors.Is(err, console.ErrSuperseded):
		sh.out.Println(sh.p.Sprintf(lblSuperseded))
	case err != nil:
		sh.out.Println(err)
	default:
		sh.out.Println(renderResults(sh.p, snap.Results))
	}
}

func (sh *shell) toggle(ctx context.Context, row string) {
	key, ok := rowKey(sh.session.Snapshot().Results, row)
	if !ok {
		sh.out.Println(sh.p.Sprintf(lblBadRow, row))
		return
	}
	snap, err := sh.session.Toggle(key)
	if err != nil {
		sh.out.Println(err)
		return
	}
	for _, r := range snap.Results {
		if r.Key != key {
			continue
		}
		if !r.Playing {
			sh.player.Stop()
			sh.out.Println(sh.p.Sprintf(lblStopped, r.RecordID))
			return
		}
		url := sh.resolve(r.ProxyURL)
		if err := sh.player.Start(ctx, url); err != nil {
			// Back to idle: nothing is playing.
			_, _ = sh.session.Toggle(key)
			sh.out.Println(err)
			return
		}
		sh.out.Println(sh.p.Sprintf(lblNowPlaying, r.RecordID, url))
		return
	}
}

func (sh *shell) download(ctx context.Context, row string) {
	key, ok := rowKey(sh.session.Snapshot().Results, row)
	if !ok {
		sh.out.Println(sh.p.Sprintf(lblBadRow, row))
		return
	}
	events, err := sh.session.Download(ctx, key)
	if err != nil {
		sh.out.Println(err)
		return
	}
	sh.printers.Add(1)
	go func() {
		defer sh.printers.Done()
		for ev := range events {
			sh.out.mu.Lock()
			printDownloadEvent(sh.out.w, sh.p, ev)
			sh.out.mu.Unlock()
		}
	}()
}
