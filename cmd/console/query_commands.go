// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/ManuGH/dvrvod/internal/console"
)

// readInput collects identifier text from args, a file, or piped stdin.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, "\n"), nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "", console.ErrEmptyInput
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "query [record-id...]",
		Short: "Look up recordings; ids come from arguments, --file, or stdin (one per line)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			session, _, err := ctx.newSession("")
			if err != nil {
				return err
			}
			defer session.Close()

			snap, err := session.Submit(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResults(ctx.printer(), snap.Results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one record id per line")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var file, dir string

	cmd := &cobra.Command{
		Use:   "download [record-id...]",
		Short: "Look up recordings and save every one that was found",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return err
			}
			session, _, err := ctx.newSession(dir)
			if err != nil {
				return err
			}
			defer session.Close()

			p := ctx.printer()
			out := cmd.OutOrStdout()
			snap, err := session.Submit(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderResults(p, snap.Results))

			var events []<-chan console.DownloadEvent
			for _, r := range snap.Results {
				if !r.Playable() {
					continue
				}
				ch, err := session.Download(cmd.Context(), r.Key)
				if err != nil {
					return err
				}
				events = append(events, ch)
			}

			failed := 0
			for _, ch := range events {
				for ev := range ch {
					if ev.State == console.DownloadFailed {
						failed++
					}
					printDownloadEvent(out, p, ev)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d download(s) failed", failed)
			}
			if len(events) == 0 {
				return errors.New(console.ReasonNotFound)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one record id per line")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Download directory")
	return cmd
}

func printDownloadEvent(out io.Writer, p *message.Printer, ev console.DownloadEvent) {
	switch ev.State {
	case console.DownloadPending:
		fmt.Fprintln(out, p.Sprintf(lblDLPending, ev.RecordID))
	case console.DownloadSuccess:
		fmt.Fprintln(out, p.Sprintf(lblDLSuccess, ev.Path, ev.Bytes))
	case console.DownloadFailed:
		fmt.Fprintln(out, p.Sprintf(lblDLFailed, ev.RecordID, ev.Reason()))
	}
}
