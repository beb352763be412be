// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"sync"
	"time"
)

// Registry hands out one breaker per upstream name.
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*CircuitBreaker
	threshold int
	reset     time.Duration
	opts      []Option
}

func NewRegistry(threshold int, reset time.Duration, opts ...Option) *Registry {
	return &Registry{
		breakers:  map[string]*CircuitBreaker{},
		threshold: threshold,
		reset:     reset,
		opts:      opts,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb := NewCircuitBreaker(name, r.threshold, r.reset, r.opts...)
	r.breakers[name] = cb
	return cb
}

// States snapshots every known breaker; used by the health endpoint.
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.State()
	}
	return out
}
