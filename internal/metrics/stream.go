// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StreamAckedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskwatch_stream_acked_total",
		Help: "Total number of inbound stream messages acknowledged",
	}, []string{"stream"})

	StreamRetriedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskwatch_stream_unacked_total",
		Help: "Total number of inbound stream messages left pending for redelivery, by reason",
	}, []string{"stream", "reason"})

	StreamReclaimedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskwatch_stream_reclaimed_total",
		Help: "Total number of pending messages claimed for redelivery",
	}, []string{"stream"})

	StreamDeadLetteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskwatch_stream_dead_lettered_total",
		Help: "Total number of messages moved to the dead-letter stream after exhausting deliveries",
	}, []string{"stream"})
)

// IncStreamAcked records an acknowledged inbound message.
func IncStreamAcked(stream string) {
	StreamAckedTotal.WithLabelValues(orUnknown(stream)).Inc()
}

// IncStreamUnacked records a message left pending, e.g. because its run failed.
func IncStreamUnacked(stream, reason string) {
	StreamRetriedTotal.WithLabelValues(orUnknown(stream), orUnknown(reason)).Inc()
}

// IncStreamReclaimed records a pending message claimed for another attempt.
func IncStreamReclaimed(stream string) {
	StreamReclaimedTotal.WithLabelValues(orUnknown(stream)).Inc()
}

// IncStreamDeadLettered records a message parked on the dead-letter stream.
func IncStreamDeadLettered(stream string) {
	StreamDeadLetteredTotal.WithLabelValues(orUnknown(stream)).Inc()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
