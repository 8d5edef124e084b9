// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package features

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/riskwatch/internal/screentime"
)

func sample(i int) screentime.Event {
	return screentime.Event{
		UserID:           "u1",
		AppPackageName:   fmt.Sprintf("com.app.%d", i),
		TimeOfDay:        screentime.Night,
		SessionDuration:  float64((i + 1) * 60000),
		ScrollDistance:   float64(i * 1000),
		InteractionCount: float64(i),
		BatteryLevel:     50,
		DayType:          screentime.Weekend,
	}
}

func TestEncode_Values(t *testing.T) {
	v := Encode(screentime.Event{
		AppPackageName:   "com.example",
		TimeOfDay:        screentime.Evening,
		SessionDuration:  90000,
		ScrollDistance:   2500,
		InteractionCount: 7,
		BatteryLevel:     40,
		DayType:          screentime.Weekday,
	})

	assert.Equal(t, 0.5, v[TimeOfDay])
	assert.Equal(t, AppBucket("com.example"), v[AppCategory])
	assert.Equal(t, 1.5, v[Duration])
	assert.Equal(t, 2.5, v[ScrollVelocity])
	assert.Equal(t, 7.0, v[InteractionRate])
	assert.Equal(t, 0.4, v[Battery])
	assert.Equal(t, 0.0, v[WeekendFlag])
}

func TestEncode_TimeOfDayTable(t *testing.T) {
	cases := map[screentime.TimeOfDay]float64{
		screentime.Morning:   0.0,
		screentime.Afternoon: 0.25,
		screentime.Evening:   0.5,
		screentime.Night:     0.75,
		"DAWN":               0.0,
		"":                   0.0,
	}
	for tod, want := range cases {
		got := Encode(screentime.Event{TimeOfDay: tod})[TimeOfDay]
		assert.Equal(t, want, got, "timeOfDay %q", tod)
	}
}

func TestEncode_DurationNotClipped(t *testing.T) {
	v := Encode(screentime.Event{SessionDuration: 45 * 60000})
	assert.Equal(t, 45.0, v[Duration])
}

func TestEncode_WeekendFlag(t *testing.T) {
	assert.Equal(t, 1.0, Encode(screentime.Event{DayType: screentime.Weekend})[WeekendFlag])
	assert.Equal(t, 0.0, Encode(screentime.Event{DayType: "HOLIDAY"})[WeekendFlag])
}

func TestEncode_Pure(t *testing.T) {
	evt := sample(3)
	first := Encode(evt)
	for i := 0; i < 50; i++ {
		if diff := cmp.Diff(first, Encode(evt)); diff != "" {
			t.Fatalf("Encode not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestAppBucket_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		b := AppBucket(fmt.Sprintf("pkg-%d", i))
		assert.GreaterOrEqual(t, b, 0.0)
		assert.LessOrEqual(t, b, 0.9)
	}
	assert.Equal(t, AppBucket("com.same"), AppBucket("com.same"))
}

func TestEncodeWindow_RightAligned(t *testing.T) {
	for n := 1; n <= WindowSize; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			sessions := make([]screentime.Event, n)
			for i := range sessions {
				sessions[i] = sample(i)
			}
			w := EncodeWindow(sessions)

			assert.Equal(t, n, w.Len)
			assert.Len(t, w.Vectors, WindowSize)
			for i := 0; i < WindowSize-n; i++ {
				assert.Equal(t, Vector{}, w.Vectors[i], "position %d should be padding", i)
			}
			for i := 0; i < n; i++ {
				assert.Equal(t, Encode(sessions[i]), w.Vectors[WindowSize-n+i], "real record %d misplaced", i)
			}
			assert.Len(t, w.Real(), n)
		})
	}
}

func TestEncodeWindow_KeepsMostRecent(t *testing.T) {
	sessions := make([]screentime.Event, 13)
	for i := range sessions {
		sessions[i] = sample(i)
	}
	w := EncodeWindow(sessions)

	assert.Equal(t, WindowSize, w.Len)
	assert.Equal(t, Encode(sessions[3]), w.Vectors[0])
	assert.Equal(t, Encode(sessions[12]), w.Vectors[WindowSize-1])
}

func TestEncodeWindow_Empty(t *testing.T) {
	w := EncodeWindow(nil)
	assert.Zero(t, w.Len)
	assert.Empty(t, w.Real())
}
