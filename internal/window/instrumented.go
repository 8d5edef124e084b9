// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package window

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/riskwatch/internal/screentime"
	"github.com/ManuGH/riskwatch/internal/telemetry"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskwatch_window_store_ops_total",
			Help: "Total window store operations",
		},
		[]string{"backend", "op", "result"}, // result=success/error
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskwatch_window_store_op_seconds",
			Help:    "Window store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
	windowLen = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskwatch_window_length",
			Help:    "Number of records in a window after append",
			Buckets: prometheus.LinearBuckets(1, 1, DefaultSize),
		},
	)
)

// instrumentedStore wraps any Store to capture metrics and spans.
type instrumentedStore struct {
	inner   Store
	backend string
	tracer  trace.Tracer
}

func NewInstrumentedStore(inner Store, backend string) Store {
	return &instrumentedStore{inner: inner, backend: backend, tracer: telemetry.Tracer("riskwatch/window")}
}

func (i *instrumentedStore) start(ctx context.Context, op string) (context.Context, trace.Span, time.Time) {
	ctx, span := i.tracer.Start(ctx, "window."+op, trace.WithAttributes(telemetry.StoreAttributes(i.backend, op)...))
	return ctx, span, time.Now()
}

func (i *instrumentedStore) observe(span trace.Span, op string, start time.Time, err error) {
	dur := time.Since(start).Seconds()
	res := "success"
	if err != nil {
		res = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(dur)
}

func (i *instrumentedStore) Append(ctx context.Context, userID string, evt screentime.Event) (err error) {
	ctx, span, start := i.start(ctx, "append")
	defer func() { i.observe(span, "append", start, err) }()
	return i.inner.Append(ctx, userID, evt)
}

func (i *instrumentedStore) Read(ctx context.Context, userID string) (out []screentime.Event, err error) {
	ctx, span, start := i.start(ctx, "read")
	defer func() { i.observe(span, "read", start, err) }()
	return i.inner.Read(ctx, userID)
}

func (i *instrumentedStore) AppendRead(ctx context.Context, userID string, evt screentime.Event) (out []screentime.Event, err error) {
	ctx, span, start := i.start(ctx, "append_read")
	defer func() {
		if err == nil {
			windowLen.Observe(float64(len(out)))
			span.SetAttributes(attribute.Int(telemetry.WindowLenKey, len(out)))
		}
		i.observe(span, "append_read", start, err)
	}()
	return i.inner.AppendRead(ctx, userID, evt)
}

func (i *instrumentedStore) Close() error {
	return i.inner.Close()
}
