// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetModelMode_OneHot(t *testing.T) {
	SetModelMode("heuristic")
	assert.Equal(t, 1.0, testutil.ToFloat64(ModelModeGauge("heuristic")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ModelModeGauge("trained")))

	SetModelMode("trained")
	assert.Equal(t, 0.0, testutil.ToFloat64(ModelModeGauge("heuristic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ModelModeGauge("trained")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ModelModeGauge("untrained")))
}

func TestSetCircuitBreakerState_OneHot(t *testing.T) {
	SetCircuitBreakerState("metrics-test", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("metrics-test", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("metrics-test", "closed")))

	before := testutil.ToFloat64(circuitBreakerTrips.WithLabelValues("metrics-test", "threshold_exceeded"))
	RecordCircuitBreakerTrip("metrics-test", "threshold_exceeded")
	assert.Equal(t, before+1, testutil.ToFloat64(circuitBreakerTrips.WithLabelValues("metrics-test", "threshold_exceeded")))
}

func TestStreamCounters_EmptyLabels(t *testing.T) {
	before := testutil.ToFloat64(StreamRetriedTotal.WithLabelValues("unknown", "unknown"))
	IncStreamUnacked("", "")
	assert.Equal(t, before+1, testutil.ToFloat64(StreamRetriedTotal.WithLabelValues("unknown", "unknown")))

	before = testutil.ToFloat64(StreamDeadLetteredTotal.WithLabelValues("metrics-test"))
	IncStreamDeadLettered("metrics-test")
	assert.Equal(t, before+1, testutil.ToFloat64(StreamDeadLetteredTotal.WithLabelValues("metrics-test")))
}
