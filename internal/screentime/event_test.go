// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package screentime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_Defaults(t *testing.T) {
	evt, err := DecodeEvent([]byte(`{"userId":"u1","appPackageName":"com.example.feed","extra":true}`))
	require.NoError(t, err)

	assert.Equal(t, "u1", evt.UserID)
	assert.Equal(t, "com.example.feed", evt.AppPackageName)
	assert.Equal(t, DefaultBatteryLevel, evt.BatteryLevel)
	assert.Zero(t, evt.SessionDuration)
	assert.Equal(t, TimeOfDay(""), evt.TimeOfDay)
}

func TestDecodeEvent_ExplicitZeroBattery(t *testing.T) {
	evt, err := DecodeEvent([]byte(`{"userId":"u1","batteryLevel":0}`))
	require.NoError(t, err)
	assert.Zero(t, evt.BatteryLevel)
}

func TestDecodeEvent_MissingUserID(t *testing.T) {
	for _, raw := range []string{`{}`, `{"userId":""}`, `{"userId":"   "}`, `null`, ``} {
		_, err := DecodeEvent([]byte(raw))
		assert.ErrorIs(t, err, ErrMissingUserID, "payload %q", raw)
	}
}

func TestDecodeEvent_Malformed(t *testing.T) {
	_, err := DecodeEvent([]byte(`"not-an-object"`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeEvent([]byte(`{"userId":"u1","sessionDuration":"long"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"SCREEN_TIME_CAPTURED","data":{"userId":"u1"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeScreenTimeCaptured, env.Type)
	assert.JSONEq(t, `{"userId":"u1"}`, string(env.Data))

	_, err = DecodeEnvelope([]byte(`{broken`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeIntervention(t *testing.T) {
	evt := Event{UserID: "u9", AppPackageName: "com.video", Timestamp: "2025-03-01T22:00:00Z"}
	raw, err := EncodeIntervention(NewIntervention(evt, 0.93, "CRITICAL"))
	require.NoError(t, err)

	var env struct {
		Type string            `json:"type"`
		Data InterventionEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, TypeInterventionTriggered, env.Type)
	assert.Equal(t, InterventionEvent{
		Type:        TypeInterventionTriggered,
		UserID:      "u9",
		Reason:      ReasonDoomscrollDetected,
		Probability: 0.93,
		RiskLevel:   "CRITICAL",
		AppName:     "com.video",
		Timestamp:   "2025-03-01T22:00:00Z",
	}, env.Data)
}
