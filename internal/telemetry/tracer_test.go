// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestConfig_Defaults(t *testing.T) {
	got := Config{}.withDefaults()
	assert.Equal(t, ExporterGRPC, got.Exporter)
	assert.Equal(t, "localhost:4317", got.Endpoint)
	assert.Equal(t, DefaultService, got.Service)

	got = Config{Exporter: ExporterHTTP}.withDefaults()
	assert.Equal(t, "localhost:4318", got.Endpoint)

	got = Config{Exporter: ExporterHTTP, Endpoint: "collector:4318", Service: "riskwatch"}.withDefaults()
	assert.Equal(t, "collector:4318", got.Endpoint)
	assert.Equal(t, "riskwatch", got.Service)
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Exporter: ExporterGRPC})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := Tracer("riskwatch/test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "zipkin"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
	assert.ErrorContains(t, err, `"zipkin"`)
}

func TestNewProvider_HTTPExporterRecords(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		Exporter:     ExporterHTTP,
		SamplingRate: 1,
		Version:      "v1.2.3",
		Environment:  "test",
	})
	require.NoError(t, err)
	require.NotNil(t, provider.tp)

	_, span := Tracer("riskwatch/test").Start(context.Background(), "pipeline.run")
	assert.True(t, span.IsRecording())
	span.End()

	// Nothing listens on the collector port, so flushing may fail; it must return.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = provider.Shutdown(ctx)
}

func TestDetectorResource(t *testing.T) {
	res := detectorResource(Config{Service: "riskd", Version: "v1.2.3", Environment: "staging"})
	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "riskd", attrs["service.name"])
	assert.Equal(t, Namespace, attrs["service.namespace"])
	assert.Equal(t, "v1.2.3", attrs["service.version"])
	assert.Equal(t, "staging", attrs["deployment.environment"])
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		root string
	}{
		{name: "always sample", rate: 1.0, root: "AlwaysOnSampler"},
		{name: "above one clamps", rate: 3, root: "AlwaysOnSampler"},
		{name: "never sample", rate: 0.0, root: "AlwaysOffSampler"},
		{name: "below zero clamps", rate: -1, root: "AlwaysOffSampler"},
		{name: "ratio sample", rate: 0.5, root: "TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := newSampler(tt.rate).Description()
			assert.True(t, strings.HasPrefix(desc, "ParentBased{root:"+tt.root+","), desc)
		})
	}
}

func TestProvider_ConcurrentShutdown(t *testing.T) {
	provider := &Provider{}
	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_ = provider.Shutdown(context.Background())
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
}
