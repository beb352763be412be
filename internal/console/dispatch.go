// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package console

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/dvrvod/internal/log"
)

// Dispatcher picks the single or batch strategy and always returns one result
// per identifier. It never returns an error.
type Dispatcher struct {
	lookup   Lookup
	inflight atomic.Int32
	onBusy   func(bool)
	onError  func(error)
	logger   zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBusyObserver is called with true when the first lookup starts and false
// when the last one finishes.
func WithBusyObserver(fn func(busy bool)) DispatcherOption {
	return func(d *Dispatcher) { d.onBusy = fn }
}

// WithErrorObserver receives every lookup failure before it is folded into results.
func WithErrorObserver(fn func(error)) DispatcherOption {
	return func(d *Dispatcher) { d.onError = fn }
}

// NewDispatcher creates a dispatcher backed by lookup.
func NewDispatcher(lookup Lookup, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		lookup: lookup,
		logger: xglog.WithComponent("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Busy reports whether a lookup is in flight.
func (d *Dispatcher) Busy() bool {
	return d.inflight.Load() > 0
}

// Dispatch resolves ids through the lookup collaborator.
func (d *Dispatcher) Dispatch(ctx context.Context, ids []string) []Result {
	if len(ids) == 0 {
		return nil
	}
	d.enter()
	defer d.leave()

	start := time.Now()
	var results []Result
	if len(ids) == 1 {
		results = []Result{d.single(ctx, ids[0])}
	} else {
		results = d.batch(ctx, ids)
	}
	d.logger.Debug().
		Str(xglog.FieldEvent, "dispatch.done").
		Int("ids", len(ids)).
		Dur(xglog.FieldDuration, time.Since(start)).
		Msg("lookup finished")
	return results
}

func (d *Dispatcher) single(ctx context.Context, id string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = NormalizeFailure([]string{id}, d.recovered(r))[0]
		}
	}()
	p, err := d.lookup.LookupOne(ctx, id)
	if err != nil {
		d.failed(err)
		return NormalizeFailure([]string{id}, err)[0]
	}
	return NormalizeSingle(id, p)
}

func (d *Dispatcher) batch(ctx context.Context, ids []string) (res []Result) {
	defer func() {
		if r := recover(); r != nil {
			res = NormalizeFailure(ids, d.recovered(r))
		}
	}()
	p, err := d.lookup.LookupMany(ctx, ids)
	if err != nil {
		d.failed(err)
		return NormalizeFailure(ids, err)
	}
	return NormalizeBatch(ids, p)
}

func (d *Dispatcher) recovered(r any) error {
	err := fmt.Errorf("lookup panicked: %v", r)
	d.logger.Error().Str(xglog.FieldEvent, "dispatch.panic").Err(err).Msg("recovered from lookup panic")
	return err
}

func (d *Dispatcher) failed(err error) {
	d.logger.Warn().Str(xglog.FieldEvent, "dispatch.failed").Err(err).Msg("lookup failed")
	if d.onError != nil {
		d.onError(err)
	}
}

func (d *Dispatcher) enter() {
	if d.inflight.Add(1) == 1 && d.onBusy != nil {
		d.onBusy(true)
	}
}

func (d *Dispatcher) leave() {
	if d.inflight.Add(-1) == 0 && d.onBusy != nil {
		d.onBusy(false)
	}
}
