// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth authenticates operators and issues HS256 session tokens.
package auth

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuGH/dvrvod/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("token invalid or expired")
)

// Claims is the JWT payload.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

const issuer = "dvrvod"

type settings struct {
	secret []byte
	ttl    time.Duration
	users  []config.UserConfig
}

// Service checks credentials against the configured users and signs tokens.
// Update swaps users and secret without blocking in-flight checks.
type Service struct {
	current atomic.Pointer[settings]
	now     func() time.Time
}

func NewService(cfg config.AuthConfig) *Service {
	s := &Service{now: time.Now}
	s.Update(cfg)
	return s
}

func (s *Service) Update(cfg config.AuthConfig) {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	users := append([]config.UserConfig(nil), cfg.Users...)
	s.current.Store(&settings{secret: []byte(cfg.JWTSecret), ttl: ttl, users: users})
}

// Authenticate returns the principal for a matching username and password.
func (s *Service) Authenticate(username, password string) (Principal, error) {
	st := s.current.Load()
	var (
		found Principal
		ok    bool
	)
	// every user is compared so timing does not reveal which usernames exist
	for _, u := range st.users {
		userMatch := constantTimeEqual(username, u.Username)
		passMatch := constantTimeEqual(password, u.Password)
		if userMatch && passMatch && !ok {
			found, ok = Principal{Username: u.Username, Role: u.Role}, true
		}
	}
	if !ok {
		return Principal{}, ErrInvalidCredentials
	}
	return found, nil
}

// Issue signs a token for p and returns it with its expiry.
func (s *Service) Issue(p Principal) (string, time.Time, error) {
	st := s.current.Load()
	now := s.now()
	exp := now.Add(st.ttl)
	claims := Claims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(st.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses and validates a token. Only HS256 is accepted.
func (s *Service) Verify(token string) (Principal, error) {
	st := s.current.Load()
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return st.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Username == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Username: claims.Username, Role: claims.Role}, nil
}
