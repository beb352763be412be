// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package archive finds which DVR server holds a recording.
package archive

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/dvrvod/internal/config"
	xglog "github.com/ManuGH/dvrvod/internal/log"
	"github.com/ManuGH/dvrvod/internal/metrics"
	"github.com/ManuGH/dvrvod/internal/resilience"
)

var (
	// ErrNotFound means every server answered 404.
	ErrNotFound = errors.New("recording not found")
	// ErrNoServers means no DVR server is configured.
	ErrNoServers = errors.New("no dvr servers configured")
	// errNotOnServer marks a 404 from one server; it never trips a breaker.
	errNotOnServer = errors.New("not on server")
)

// StatusError is an unexpected upstream status.
type StatusError struct {
	Server string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dvr %s: unexpected status code %d", e.Server, e.Status)
}

// ServerLister supplies the persisted server list.
type ServerLister interface {
	List(ctx context.Context) ([]string, error)
}

// Settings are the probe parameters; they can be swapped at runtime.
type Settings struct {
	Servers          []string // fallback when the store is empty
	Timeout          time.Duration
	Attempts         int
	Backoff          time.Duration
	SkipTLSVerify    bool
	RateLimit        float64
	RateBurst        int
	CircuitThreshold int
	CircuitCooldown  time.Duration
}

// SettingsFromConfig maps the dvr section and server list of cfg.
func SettingsFromConfig(cfg config.AppConfig) Settings {
	return Settings{
		Servers:          append([]string(nil), cfg.DVRServers...),
		Timeout:          cfg.DVR.Timeout,
		Attempts:         cfg.DVR.Retry,
		Backoff:          cfg.DVR.RetryBackoff,
		SkipTLSVerify:    cfg.DVR.SkipTLSVerify,
		RateLimit:        cfg.DVR.RateLimit,
		RateBurst:        cfg.DVR.RateBurst,
		CircuitThreshold: cfg.DVR.CircuitThreshold,
		CircuitCooldown:  cfg.DVR.CircuitCooldown,
	}
}

type state struct {
	settings Settings
	client   *http.Client
	breakers *resilience.Registry
	limiters sync.Map // server -> *rate.Limiter
}

// Locator probes every DVR server concurrently; the first hit wins.
type Locator struct {
	store     ServerLister
	state     atomic.Pointer[state]
	transport http.RoundTripper
	logger    zerolog.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithTransport replaces the base transport; tests use it to reach httptest servers.
func WithTransport(rt http.RoundTripper) Option {
	return func(l *Locator) { l.transport = rt }
}

func NewLocator(settings Settings, store ServerLister, opts ...Option) *Locator {
	l := &Locator{
		store:  store,
		logger: xglog.WithComponent("archive"),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Update(settings)
	return l
}

// Update installs new settings. Breakers and limiters start fresh.
func (l *Locator) Update(s Settings) {
	if s.Attempts < 1 {
		s.Attempts = 1
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	base := l.transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: s.SkipTLSVerify}, // #nosec G402 -- DVR boxes commonly use self-signed certs; operator opt-in
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	st := &state{
		settings: s,
		client: &http.Client{
			Timeout:   s.Timeout,
			Transport: otelhttp.NewTransport(base),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		breakers: resilience.NewRegistry(s.CircuitThreshold, s.CircuitCooldown,
			resilience.WithFailurePredicate(func(err error) bool {
				return err != nil && !errors.Is(err, errNotOnServer) && !errors.Is(err, context.Canceled)
			})),
	}
	l.state.Store(st)
}

// Servers returns the store's list, or the configured fallback when the
// store is empty or unavailable.
func (l *Locator) Servers(ctx context.Context) []string {
	st := l.state.Load()
	if l.store != nil {
		servers, err := l.store.List(ctx)
		if err != nil {
			l.logger.Warn().Err(err).Str(xglog.FieldEvent, "archive.store_failed").Msg("server store unavailable, using configured list")
		} else if len(servers) > 0 {
			return servers
		}
	}
	return st.settings.Servers
}

// Breakers exposes circuit states for health reporting.
func (l *Locator) Breakers() map[string]resilience.State {
	return l.state.Load().breakers.States()
}

// Find returns the upstream URL of recordID.
func (l *Locator) Find(ctx context.Context, recordID string) (string, error) {
	ctx, span := otel.Tracer("dvrvod/archive").Start(ctx, "archive.Find")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", recordID))

	start := time.Now()
	url, err := l.find(ctx, recordID)
	switch {
	case err == nil:
		metrics.ObserveLookup("found", time.Since(start))
	case errors.Is(err, ErrNotFound):
		metrics.ObserveLookup("not_found", time.Since(start))
	default:
		metrics.ObserveLookup("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return url, err
}

func (l *Locator) find(ctx context.Context, recordID string) (string, error) {
	st := l.state.Load()
	servers := l.Servers(ctx)
	if len(servers) == 0 {
		return "", ErrNoServers
	}
	if xglog.RecordIDFromContext(ctx) != recordID {
		ctx = xglog.ContextWithRecordID(ctx, recordID)
	}
	logger := xglog.FromContext(ctx).With().Str(xglog.FieldComponent, "archive").Logger()

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		foundURL string
	)
	// One slot per server; goroutines write only their own index.
	errs := make([]error, len(servers))
	var g errgroup.Group
	for i, server := range servers {
		g.Go(func() error {
			url, err := l.probeServer(probeCtx, st, server, recordID, logger.With().Int(xglog.FieldServerIndex, i).Logger())
			if err == nil {
				once.Do(func() {
					foundURL = url
					cancel()
				})
				return nil
			}
			if !errors.Is(err, context.Canceled) {
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	if foundURL != "" {
		logger.Info().Str(xglog.FieldEvent, "archive.found").Str(xglog.FieldURL, foundURL).Msg("recording located")
		return foundURL, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", lookupFailure(errs)
}

// lookupFailure returns the first non-404 failure in server order. ErrNotFound
// only when no server failed otherwise.
func lookupFailure(errs []error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, errNotOnServer) {
			return err
		}
	}
	return ErrNotFound
}

// RecordingURL joins a server base and a record id.
func RecordingURL(server, recordID string) string {
	return strings.TrimRight(server, "/") + "/" + recordID + ".mp4"
}

func (l *Locator) limiter(st *state, server string) *rate.Limiter {
	if st.settings.RateLimit <= 0 {
		return nil
	}
	if v, ok := st.limiters.Load(server); ok {
		return v.(*rate.Limiter)
	}
	burst := max(st.settings.RateBurst, 1)
	v, _ := st.limiters.LoadOrStore(server, rate.NewLimiter(rate.Limit(st.settings.RateLimit), burst))
	return v.(*rate.Limiter)
}

// probeServer HEADs one server with retries. A 404 ends the attempts.
func (l *Locator) probeServer(ctx context.Context, st *state, server, recordID string, logger zerolog.Logger) (string, error) {
	url := RecordingURL(server, recordID)
	breaker := st.breakers.Get(server)
	var lastErr error

	for attempt := 0; attempt < st.settings.Attempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * st.settings.Backoff
			logger.Debug().Int(xglog.FieldAttempt, attempt+1).Dur("backoff", wait).Msg("retrying dvr probe")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
		if lim := l.limiter(st, server); lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return "", err
			}
		}

		var status int
		err := breaker.Execute(func() error {
			var err error
			status, err = l.head(ctx, st.client, url)
			if err != nil {
				return err
			}
			switch status {
			case http.StatusOK, http.StatusFound:
				return nil
			case http.StatusNotFound:
				return errNotOnServer
			default:
				return &StatusError{Server: server, Status: status}
			}
		})

		switch {
		case err == nil:
			metrics.RecordProbe(server, metrics.ProbeFound)
			return url, nil
		case errors.Is(err, errNotOnServer):
			metrics.RecordProbe(server, metrics.ProbeNotFound)
			logger.Debug().Str(xglog.FieldServer, server).Int(xglog.FieldStatus, status).Msg("recording not on server")
			return "", err
		case errors.Is(err, resilience.ErrCircuitOpen):
			metrics.RecordProbe(server, metrics.ProbeCircuitOpen)
			return "", fmt.Errorf("dvr %s: %w", server, err)
		case ctx.Err() != nil:
			metrics.RecordProbe(server, metrics.ProbeCanceled)
			return "", ctx.Err()
		}
		metrics.RecordProbe(server, metrics.ProbeError)
		logger.Warn().Err(err).Str(xglog.FieldServer, server).Int(xglog.FieldAttempt, attempt+1).Msg("dvr probe failed")
		lastErr = err
	}
	return "", lastErr
}

func (l *Locator) head(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
