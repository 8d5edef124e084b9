// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldUserID        = "user_id"
	FieldMessageID     = "message_id"
	FieldCorrelationID = "correlation_id"
	FieldConsumer      = "consumer"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStream    = "stream"
	FieldPartition = "partition"
	FieldEnvelope  = "envelope_type"

	// Risk fields
	FieldRiskLevel   = "risk_level"
	FieldProbability = "probability"
	FieldModelMode   = "model_mode"
	FieldModelSource = "model_source"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Store fields
	FieldBackend = "backend"
	FieldKey     = "key"
	FieldPath    = "path"
)
