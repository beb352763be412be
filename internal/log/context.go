// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

// scope holds the identifiers a request carries through the gateway.
type scope struct {
	requestID string
	recordID  string
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, edit func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := scopeFrom(ctx)
	edit(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// ContextWithRequestID tags ctx with the ingress request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

// ContextWithRecordID tags ctx with the recording being resolved or streamed.
func ContextWithRecordID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.recordID = id })
}

func RequestIDFromContext(ctx context.Context) string { return scopeFrom(ctx).requestID }

func RecordIDFromContext(ctx context.Context) string { return scopeFrom(ctx).recordID }

// WithContext adds the request and record ids found in ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	s := scopeFrom(ctx)
	if s.requestID == "" && s.recordID == "" {
		return logger
	}
	lc := logger.With()
	if s.requestID != "" {
		lc = lc.Str(FieldRequestID, s.requestID)
	}
	if s.recordID != "" {
		lc = lc.Str(FieldRecordID, s.recordID)
	}
	return lc.Logger()
}

// WithComponentFromContext is WithContext on a component logger.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}

// FromContext returns the request logger attached by Middleware, or the base
// logger when there is none. A record id tagged after the request logger was
// attached is added on the fly.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := Base()
		return &l
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		b := WithContext(ctx, Base())
		return &b
	}
	if rid := RecordIDFromContext(ctx); rid != "" {
		tagged := l.With().Str(FieldRecordID, rid).Logger()
		return &tagged
	}
	return l
}
