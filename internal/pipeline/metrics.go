// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ManuGH/riskwatch/internal/risk"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskwatch_pipeline_runs_total",
			Help: "Pipeline runs by final state.",
		},
		[]string{"state", "mode"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskwatch_pipeline_run_seconds",
			Help:    "End-to-end pipeline run latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"state"},
	)

	fsmTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskwatch_pipeline_fsm_transitions_total",
			Help: "Pipeline run state transitions.",
		},
		[]string{"state_from", "state_to"},
	)

	riskLevelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskwatch_risk_level_total",
			Help: "Classified runs by risk level and model mode.",
		},
		[]string{"level", "mode"},
	)

	inferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskwatch_model_inference_seconds",
			Help:    "Risk model inference latency.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		},
		[]string{"mode"},
	)

	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskwatch_dispatch_total",
			Help: "Inbound envelopes by dispatch outcome.",
		},
		[]string{"outcome"}, // routed, ignored, malformed, missing_user_id
	)
)

func recordTransition(from, to State) {
	fsmTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// recordDecision emits the intervention decision on the global OTel meter.
func recordDecision(ctx context.Context, level risk.Level, mode string, published bool) {
	meter := otel.GetMeterProvider().Meter("riskwatch.pipeline")
	decisions, err := meter.Int64Counter("riskwatch.intervention.decisions",
		metric.WithDescription("Intervention decisions by risk level"))
	if err != nil {
		return
	}
	decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("risk_level", string(level)),
		attribute.String("model_mode", mode),
		attribute.Bool("published", published),
	))
}
