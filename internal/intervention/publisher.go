// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package intervention emits INTERVENTION_TRIGGERED events downstream.
package intervention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/riskwatch/internal/resilience"
	"github.com/ManuGH/riskwatch/internal/screentime"
	"github.com/ManuGH/riskwatch/internal/stream"
)

// DefaultTopic is the outbound stream.
const DefaultTopic = "intervention-events"

var publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "riskwatch_intervention_publish_total",
	Help: "Intervention publish attempts by result",
}, []string{"result"}) // result=success/error/circuit_open

// Publisher delivers an intervention. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev screentime.InterventionEvent) error
}

// StreamPublisher appends interventions to a Redis stream.
type StreamPublisher struct {
	producer *stream.Producer
	topic    string
}

func NewStreamPublisher(producer *stream.Producer, topic string) *StreamPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &StreamPublisher{producer: producer, topic: topic}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev screentime.InterventionEvent) error {
	payload, err := screentime.EncodeIntervention(ev)
	if err != nil {
		return err
	}
	if _, err := p.producer.Publish(ctx, p.topic, ev.UserID, payload); err != nil {
		return fmt.Errorf("publish intervention: %w", err)
	}
	return nil
}

// BreakerPublisher stops calling a failing publisher for a while.
type BreakerPublisher struct {
	next    Publisher
	breaker *resilience.CircuitBreaker
}

// NewBreakerPublisher opens after threshold consecutive failures and probes
// again after resetTimeout.
func NewBreakerPublisher(next Publisher, threshold int, resetTimeout time.Duration, opts ...resilience.Option) *BreakerPublisher {
	return &BreakerPublisher{
		next:    next,
		breaker: resilience.NewCircuitBreaker("intervention_publisher", threshold, resetTimeout, opts...),
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, ev screentime.InterventionEvent) error {
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.next.Publish(ctx, ev)
	})
	switch {
	case err == nil:
		publishTotal.WithLabelValues("success").Inc()
	case errors.Is(err, resilience.ErrCircuitOpen):
		publishTotal.WithLabelValues("circuit_open").Inc()
	default:
		publishTotal.WithLabelValues("error").Inc()
	}
	return err
}

// State exposes the breaker state for health reporting.
func (p *BreakerPublisher) State() resilience.State {
	return p.breaker.State()
}
