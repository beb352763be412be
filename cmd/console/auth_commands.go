// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/dvrvod/internal/credentials"
	"github.com/ManuGH/dvrvod/internal/gatewayclient"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the gateway and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return errors.New("username and password are required")
			}

			client, creds, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			login, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := creds.Set(credentials.Credentials{
				Token:     login.Token,
				ExpiresAt: login.ExpiresAt,
				Username:  login.User.Username,
				Role:      login.User.Role,
			}); err != nil {
				return err
			}

			p := ctx.printer()
			fmt.Fprintln(cmd.OutOrStdout(), p.Sprintf(lblLoggedIn, login.User.Username, login.User.Role, login.ExpiresAt.Local().Format(time.DateTime)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, creds, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			// best effort; the local token is dropped either way
			_ = client.Logout(cmd.Context())
			creds.Invalidate()
			fmt.Fprintln(cmd.OutOrStdout(), ctx.printer().Sprintf(lblLoggedOut))
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, creds, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			p := ctx.printer()
			if creds.Token() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), p.Sprintf(lblNotLoggedIn))
				return nil
			}
			user, err := client.Me(cmd.Context())
			if gatewayclient.IsSessionExpired(err) {
				fmt.Fprintln(cmd.OutOrStdout(), p.Sprintf(lblNotLoggedIn))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Sprintf(lblWhoami, user.Username, user.Role))
			return nil
		},
	}
}
