// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"context"
	"sync"
)

type fakeLookup struct {
	mu       sync.Mutex
	oneCalls []string
	manyCall [][]string
	one      func(ctx context.Context, id string) (Payload, error)
	many     func(ctx context.Context, ids []string) (Payload, error)
}

func (f *fakeLookup) LookupOne(ctx context.Context, id string) (Payload, error) {
	f.mu.Lock()
	f.oneCalls = append(f.oneCalls, id)
	f.mu.Unlock()
	return f.one(ctx, id)
}

func (f *fakeLookup) LookupMany(ctx context.Context, ids []string) (Payload, error) {
	f.mu.Lock()
	f.manyCall = append(f.manyCall, append([]string(nil), ids...))
	f.mu.Unlock()
	return f.many(ctx, ids)
}

func (f *fakeLookup) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.oneCalls), len(f.manyCall)
}

type fakeFetcher struct {
	body []byte
	err  error
	gate chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.body, f.err
}

func item(kv ...any) map[string]any {
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}
