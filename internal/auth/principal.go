// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"context"

	"github.com/ManuGH/dvrvod/internal/config"
)

// Principal is the authenticated caller.
type Principal struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == config.RoleAdmin }

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller attached by one of the middlewares.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
