// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Pipeline attributes
	UserIDKey        = "user.id"
	PipelineStateKey = "pipeline.state"

	// Scoring attributes
	RiskLevelKey       = "risk.level"
	RiskProbabilityKey = "risk.probability"
	ModelModeKey       = "model.mode"

	// Window store attributes
	WindowBackendKey = "window.backend"
	WindowOpKey      = "window.op"
	WindowLenKey     = "window.len"

	// Stream attributes
	StreamNameKey      = "stream.name"
	StreamMessageIDKey = "stream.message_id"
	StreamDeliveryKey  = "stream.deliveries"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RunAttributes creates the attributes every pipeline run span starts with.
func RunAttributes(userID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(UserIDKey, userID),
	}
}

// ScoreAttributes describes a classified score.
func ScoreAttributes(level, mode string, probability float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RiskLevelKey, level),
		attribute.String(ModelModeKey, mode),
		attribute.Float64(RiskProbabilityKey, probability),
	}
}

// StoreAttributes describes a window store call.
func StoreAttributes(backend, op string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(WindowBackendKey, backend),
		attribute.String(WindowOpKey, op),
	}
}

// MessageAttributes describes an inbound stream delivery.
func MessageAttributes(stream, id string, deliveries int64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if stream != "" {
		attrs = append(attrs, attribute.String(StreamNameKey, stream))
	}
	if id != "" {
		attrs = append(attrs, attribute.String(StreamMessageIDKey, id))
	}
	if deliveries > 0 {
		attrs = append(attrs, attribute.Int64(StreamDeliveryKey, deliveries))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
