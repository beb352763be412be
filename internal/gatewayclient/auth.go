// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gatewayclient

import (
	"context"
	"net/http"
	"time"
)

// User is the principal reported by the gateway.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login is a successful login response.
type Login struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Login exchanges username and password for a token.
func (c *Client) Login(ctx context.Context, username, password string) (Login, error) {
	var resp struct {
		Login
		Success bool `json:"success"`
	}
	err := c.doJSON(ctx, "login", http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		return Login{}, err
	}
	return resp.Login, nil
}

// Me returns the principal behind the current token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp struct {
		Success bool `json:"success"`
		User    User `json:"user"`
	}
	if err := c.doJSON(ctx, "me", http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Logout clears the server side cookie. Tokens stay valid until they expire.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "logout", http.MethodPost, "/api/auth/logout", nil, nil)
}
