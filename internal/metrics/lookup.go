// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe outcomes.
const (
	ProbeFound       = "found"
	ProbeNotFound    = "not_found"
	ProbeError       = "error"
	ProbeCircuitOpen = "circuit_open"
	ProbeCanceled    = "canceled"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrvod_dvr_probes_total",
		Help: "HEAD probes against DVR servers by server and outcome",
	}, []string{"server", "outcome"})

	lookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dvrvod_lookup_duration_seconds",
		Help:    "Time to resolve one record id across all DVR servers",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"result"})

	playRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrvod_play_requests_total",
		Help: "Play API requests by mode (single, batch) and outcome",
	}, []string{"mode", "outcome"})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dvrvod_play_batch_size",
		Help:    "Number of record ids per batch request",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
)

func RecordProbe(server, outcome string) {
	probesTotal.WithLabelValues(server, outcome).Inc()
}

// ObserveLookup records a finished lookup; result is "found", "not_found" or "error".
func ObserveLookup(result string, d time.Duration) {
	lookupDuration.WithLabelValues(result).Observe(d.Seconds())
}

func RecordPlayRequest(mode, outcome string) {
	playRequests.WithLabelValues(mode, outcome).Inc()
}

func ObserveBatchSize(n int) {
	batchSize.Observe(float64(n))
}
