// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dvrvod_stream_active",
		Help: "Recordings currently being proxied",
	})

	streamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dvrvod_stream_bytes_total",
		Help: "Bytes copied from DVR servers to clients",
	})

	streamResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrvod_stream_responses_total",
		Help: "Stream proxy responses by status code",
	}, []string{"code"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dvrvod_auth_login_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})
)

func IncActiveStreams() { activeStreams.Inc() }
func DecActiveStreams() { activeStreams.Dec() }

func AddStreamBytes(n int64) {
	if n > 0 {
		streamBytes.Add(float64(n))
	}
}

func RecordStreamResponse(code int) {
	streamResponses.WithLabelValues(strconv.Itoa(code)).Inc()
}

func RecordLogin(outcome string) {
	authAttempts.WithLabelValues(outcome).Inc()
}
