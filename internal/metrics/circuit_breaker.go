// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker states exported as a one-hot gauge per DVR server.
var breakerStates = [...]string{"closed", "half-open", "open"}

var (
	dvrBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dvrvod_dvr_breaker_state",
		Help: "Per-server circuit breaker state; the series for the current state is 1",
	}, []string{"server", "state"})

	dvrBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrvod_dvr_breaker_trips_total",
		Help: "Times a DVR server breaker opened, by reason",
	}, []string{"server", "reason"})
)

func SetCircuitBreakerState(server, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		dvrBreakerState.WithLabelValues(server, s).Set(v)
	}
}

func RecordCircuitBreakerTrip(server, reason string) {
	dvrBreakerTrips.WithLabelValues(server, reason).Inc()
}
