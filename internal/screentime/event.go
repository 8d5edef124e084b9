// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package screentime holds the records that flow through the risk detection
// stage: captured screen-time samples, stream envelopes and the intervention
// events emitted downstream.
package screentime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Envelope types understood on the inbound and outbound topics.
const (
	TypeScreenTimeCaptured    = "SCREEN_TIME_CAPTURED"
	TypeInterventionTriggered = "INTERVENTION_TRIGGERED"

	ReasonDoomscrollDetected = "DOOMSCROLL_DETECTED"
)

// TimeOfDay buckets the local time a session was captured in.
type TimeOfDay string

const (
	Morning   TimeOfDay = "MORNING"
	Afternoon TimeOfDay = "AFTERNOON"
	Evening   TimeOfDay = "EVENING"
	Night     TimeOfDay = "NIGHT"
)

// DayType distinguishes weekdays from weekends.
type DayType string

const (
	Weekday DayType = "WEEKDAY"
	Weekend DayType = "WEEKEND"
)

// DefaultBatteryLevel is assumed when a sample does not report battery.
const DefaultBatteryLevel = 100.0

var (
	// ErrMissingUserID marks a sample that cannot be attributed to a user.
	ErrMissingUserID = errors.New("screen time event: missing userId")
	// ErrMalformed marks a payload that is not a JSON object.
	ErrMalformed = errors.New("screen time event: malformed payload")
)

// Event is one captured session sample. A missing numeric field decodes to
// zero, except BatteryLevel which defaults to 100.
type Event struct {
	UserID           string    `json:"userId"`
	AppPackageName   string    `json:"appPackageName"`
	TimeOfDay        TimeOfDay `json:"timeOfDay"`
	SessionDuration  float64   `json:"sessionDuration"`
	ScrollDistance   float64   `json:"scrollDistance"`
	InteractionCount float64   `json:"interactionCount"`
	BatteryLevel     float64   `json:"batteryLevel"`
	DayType          DayType   `json:"dayType"`
	Timestamp        string    `json:"timestamp"`
}

// Envelope is the generic typed message carried on both topics.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// InterventionEvent is emitted when a user's window scores HIGH or CRITICAL.
type InterventionEvent struct {
	Type        string  `json:"type"`
	UserID      string  `json:"userId"`
	Reason      string  `json:"reason"`
	Probability float64 `json:"probability"`
	RiskLevel   string  `json:"riskLevel"`
	AppName     string  `json:"appName"`
	Timestamp   string  `json:"timestamp"`
}

// DecodeEnvelope parses a raw stream payload.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env, nil
}

// DecodeEvent parses the data section of a SCREEN_TIME_CAPTURED envelope.
// Extra fields are ignored and missing optional fields take their defaults.
func DecodeEvent(data []byte) (Event, error) {
	// batteryLevel is decoded separately so that absence can be told apart from 0.
	var probe struct {
		BatteryLevel *float64 `json:"batteryLevel"`
	}
	var evt Event
	if len(data) == 0 || string(data) == "null" {
		return Event{}, ErrMissingUserID
	}
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if probe.BatteryLevel == nil {
		evt.BatteryLevel = DefaultBatteryLevel
	}
	if strings.TrimSpace(evt.UserID) == "" {
		return Event{}, ErrMissingUserID
	}
	return evt, nil
}

// NewIntervention builds the downstream event for a scored sample.
func NewIntervention(evt Event, probability float64, level string) InterventionEvent {
	return InterventionEvent{
		Type:        TypeInterventionTriggered,
		UserID:      evt.UserID,
		Reason:      ReasonDoomscrollDetected,
		Probability: probability,
		RiskLevel:   level,
		AppName:     evt.AppPackageName,
		Timestamp:   evt.Timestamp,
	}
}

// EncodeIntervention wraps an intervention in the outbound envelope.
func EncodeIntervention(ev InterventionEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal intervention: %w", err)
	}
	return json.Marshal(Envelope{Type: TypeInterventionTriggered, Data: data})
}
