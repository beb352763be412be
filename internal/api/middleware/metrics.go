// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dvrvod_http_request_duration_seconds",
		Help:    "Time to complete a gateway request; stream requests include the whole transfer",
		Buckets: []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30, 120, 600},
	}, []string{"method", "route", "status"})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dvrvod_http_requests_in_flight",
		Help: "Gateway requests currently being served",
	})

	responseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "dvrvod_http_response_bytes",
		Help: "Response body size; recordings land in the upper buckets",
		// 256 B .. 64 GiB
		Buckets: prometheus.ExponentialBuckets(256, 16, 8),
	}, []string{"method", "route", "status"})
)

// Metrics observes every request under its chi route pattern, or "unmatched".
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestsInFlight.Inc()
			defer requestsInFlight.Dec()

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			route := routePattern(r, "unmatched")
			status := strconv.Itoa(sw.status)
			requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			if sw.bytes > 0 {
				responseBytes.WithLabelValues(r.Method, route, status).Observe(float64(sw.bytes))
			}
		})
	}
}

// routePattern returns the matched chi pattern, or fallback before routing.
func routePattern(r *http.Request, fallback string) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return fallback
}

// statusWriter remembers the status code and counts body bytes. It keeps
// Flush so the stream proxy can push chunks through it.
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.wroteHeader {
		return
	}
	sw.status = code
	sw.wroteHeader = true
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.WriteHeader(http.StatusOK)
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += int64(n)
	return n, err
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }
