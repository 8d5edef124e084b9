// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package features turns raw screen-time samples into the fixed-shape numeric
// input consumed by the risk model.
package features

import (
	"github.com/cespare/xxhash/v2"

	"github.com/ManuGH/riskwatch/internal/screentime"
)

const (
	// Size is the length of a single feature vector.
	Size = 7
	// WindowSize is the number of vectors the model consumes (W).
	WindowSize = 10

	appBuckets = 10
)

// Feature indexes inside a Vector.
const (
	TimeOfDay = iota
	AppCategory
	Duration
	ScrollVelocity
	InteractionRate
	Battery
	WeekendFlag
)

// Vector is one encoded session.
type Vector [Size]float64

// Window is the padded, right-aligned model input. Vectors[WindowSize-Len:]
// hold real sessions oldest first; everything before that is zero padding.
type Window struct {
	Vectors [WindowSize]Vector
	Len     int
}

// Real returns the non-padding vectors in chronological order.
func (w Window) Real() []Vector {
	return w.Vectors[WindowSize-w.Len:]
}

var timeOfDayCode = map[screentime.TimeOfDay]float64{
	screentime.Morning:   0.0,
	screentime.Afternoon: 0.25,
	screentime.Evening:   0.5,
	screentime.Night:     0.75,
}

// Encode maps a sample to its feature vector. It has no failure path; unknown
// or missing values take their defaults.
func Encode(evt screentime.Event) Vector {
	var weekend float64
	if evt.DayType == screentime.Weekend {
		weekend = 1.0
	}
	return Vector{
		TimeOfDay:       timeOfDayCode[evt.TimeOfDay],
		AppCategory:     AppBucket(evt.AppPackageName),
		Duration:        evt.SessionDuration / 60000.0,
		ScrollVelocity:  evt.ScrollDistance / 1000.0,
		InteractionRate: evt.InteractionCount,
		Battery:         evt.BatteryLevel / 100.0,
		WeekendFlag:     weekend,
	}
}

// AppBucket is a coarse, lossy bucketing of the app identity into
// {0.0, 0.1, ..., 0.9}. Bucket values carry no taxonomy.
func AppBucket(pkg string) float64 {
	return float64(xxhash.Sum64String(pkg)%appBuckets) / appBuckets
}

// EncodeWindow encodes a chronological (oldest first) session list into the
// padded model input. Only the last WindowSize sessions are kept.
func EncodeWindow(sessions []screentime.Event) Window {
	if len(sessions) > WindowSize {
		sessions = sessions[len(sessions)-WindowSize:]
	}
	w := Window{Len: len(sessions)}
	offset := WindowSize - len(sessions)
	for i, s := range sessions {
		w.Vectors[offset+i] = Encode(s)
	}
	return w
}
