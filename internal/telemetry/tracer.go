// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telemetry wires OpenTelemetry tracing for the detector and names the
// span attributes shared by the stream, window and pipeline packages.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultService is reported when no service name is configured.
	DefaultService = "riskd"
	// Namespace groups every riskwatch process in the trace backend.
	Namespace = "riskwatch"

	ExporterGRPC = "grpc"
	ExporterHTTP = "http"

	flushTimeout = 5 * time.Second
)

// ErrUnknownExporter is returned for an exporter other than grpc or http.
var ErrUnknownExporter = errors.New("telemetry: unknown exporter")

var defaultEndpoints = map[string]string{
	ExporterGRPC: "localhost:4317",
	ExporterHTTP: "localhost:4318",
}

// Config mirrors the telemetry block of the daemon config plus the process
// identity stamped on every span.
type Config struct {
	Enabled bool
	// Exporter is grpc (default) or http.
	Exporter string
	// Endpoint defaults to the exporter's local OTLP port.
	Endpoint string
	// SamplingRate applies to root spans; child spans follow their parent.
	SamplingRate float64

	Service     string
	Version     string
	Environment string
}

func (c Config) withDefaults() Config {
	if c.Exporter == "" {
		c.Exporter = ExporterGRPC
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoints[c.Exporter]
	}
	if c.Service == "" {
		c.Service = DefaultService
	}
	return c
}

// Provider owns the SDK tracer provider. A disabled Provider is a no-op.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider installs the global tracer provider and the W3C propagators.
// With tracing disabled every span is non-recording.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	cfg = cfg.withDefaults()
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(detectorResource(cfg)),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterGRPC:
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp grpc exporter %s: %w", cfg.Endpoint, err)
		}
		return exp, nil
	case ExporterHTTP:
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp http exporter %s: %w", cfg.Endpoint, err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}
}

func detectorResource(cfg Config) *resource.Resource {
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.Service),
		semconv.ServiceNamespaceKey.String(Namespace),
		semconv.ServiceVersionKey.String(cfg.Version),
		semconv.DeploymentEnvironmentKey.String(cfg.Environment),
	)
}

// newSampler samples root spans at rate, clamped to [0,1].
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Shutdown flushes buffered spans. It is registered as the last daemon
// shutdown hook.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
