// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/ManuGH/dvrvod/internal/console"
	"github.com/ManuGH/dvrvod/internal/credentials"
	"github.com/ManuGH/dvrvod/internal/gatewayclient"
	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/version"
)

const (
	envGateway     = "DVRVOD_GATEWAY"
	envCredentials = "DVRVOD_CREDENTIALS"
	defaultGateway = "http://localhost:8080"
)

type options struct {
	gateway     string
	credentials string
	lang        string
	logLevel    string
}

// commandContext lazily builds the gateway client shared by all subcommands.
type commandContext struct {
	opts *options

	once   sync.Once
	client *gatewayclient.Client
	creds  *credentials.Store
	err    error
}

func newCommandContext(opts *options) *commandContext {
	return &commandContext{opts: opts}
}

func (c *commandContext) ensureClient() (*gatewayclient.Client, *credentials.Store, error) {
	c.once.Do(func() {
		c.creds = credentials.NewStore(c.opts.credentials)
		if err := c.creds.Load(); err != nil {
			logger := xglog.WithComponent("console")
			logger.Warn().Err(err).Str(xglog.FieldEvent, "credentials.load_failed").Msg("ignoring unreadable credentials file")
		}
		c.client, c.err = gatewayclient.New(c.opts.gateway, gatewayclient.WithCredentials(c.creds))
	})
	return c.client, c.creds, c.err
}

func (c *commandContext) printer() *message.Printer {
	return newPrinter(c.opts.lang)
}

// newSession wires the console core around the gateway client. A 401 during
// a lookup drops the stored credentials.
func (c *commandContext) newSession(downloadDir string) (*console.Session, *gatewayclient.Client, error) {
	client, creds, err := c.ensureClient()
	if err != nil {
		return nil, nil, err
	}
	downloads := console.NewCoordinator(client, console.DirSaver{Dir: downloadDir})
	session := console.NewSession(client, downloads, console.OnSessionExpired(creds.Invalidate))
	return session, client, nil
}

func configureLogging(level string, out io.Writer) {
	writer := out
	if f, ok := out.(*os.File); ok {
		writer = zerolog.ConsoleWriter{Out: out, NoColor: !isatty.IsTerminal(f.Fd())}
	}
	xglog.Configure(xglog.Config{
		Level:   level,
		Output:  writer,
		Service: "dvrvod-console",
		Version: version.Version,
	})
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	ctx := newCommandContext(opts)

	rootCmd := &cobra.Command{
		Use:           "dvrvod-console",
		Short:         "Look up, play and download DVR recordings",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(opts.logLevel, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.gateway, "gateway", "g", envOr(envGateway, defaultGateway), "Gateway base URL")
	flags.StringVar(&opts.credentials, "credentials", envOr(envCredentials, credentials.DefaultPath()), "Credentials file path")
	flags.StringVar(&opts.lang, "lang", "", "Display language (en, zh); defaults to the locale")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newLogoutCommand(ctx))
	rootCmd.AddCommand(newWhoamiCommand(ctx))
	rootCmd.AddCommand(newQueryCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newShellCommand(ctx))

	return rootCmd
}
