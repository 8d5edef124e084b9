// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package risk discretises a model probability into a risk level.
package risk

import (
	"errors"
	"fmt"
)

// Level is the discretised risk.
type Level string

const (
	Low      Level = "LOW"
	Medium   Level = "MEDIUM"
	High     Level = "HIGH"
	Critical Level = "CRITICAL"
)

// Urgency tells downstream consumers how quickly to act.
type Urgency string

const (
	UrgencyNone      Urgency = "NONE"
	UrgencyImmediate Urgency = "IMMEDIATE"
)

// Levels lists every level from lowest to highest.
var Levels = []Level{Low, Medium, High, Critical}

// Assessment is the classified outcome of one pipeline run.
type Assessment struct {
	Probability float64 `json:"probability"`
	Level       Level   `json:"riskLevel"`
	Urgency     Urgency `json:"interventionUrgency"`
}

// RequiresIntervention reports whether the assessment crosses the
// intervention threshold (HIGH or CRITICAL).
func (a Assessment) RequiresIntervention() bool {
	return a.Level == High || a.Level == Critical
}

// Thresholds are the lower (exclusive) bounds of each band above LOW.
type Thresholds struct {
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// DefaultThresholds is the band table the detector ships with.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.4, High: 0.6, Critical: 0.8}
}

// ErrInvalidThresholds is returned for a band table that is not strictly increasing in [0,1].
var ErrInvalidThresholds = errors.New("invalid risk thresholds")

// Validate checks that 0 <= medium < high < critical <= 1.
func (t Thresholds) Validate() error {
	if t.Medium < 0 || t.Critical > 1 || !(t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("%w: medium=%v high=%v critical=%v", ErrInvalidThresholds, t.Medium, t.High, t.Critical)
	}
	return nil
}

// Classifier maps probabilities to levels using a fixed band table.
type Classifier struct {
	t Thresholds
}

// NewClassifier validates the table and returns a classifier.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{t: t}, nil
}

// Thresholds returns the band table in use.
func (c *Classifier) Thresholds() Thresholds { return c.t }

// Classify evaluates the bands top-down; the first match wins. Each band is
// exclusive on its lower bound and inclusive on its upper bound.
func (c *Classifier) Classify(p float64) Assessment {
	a := Assessment{Probability: p, Level: Low, Urgency: UrgencyNone}
	switch {
	case p > c.t.Critical:
		a.Level, a.Urgency = Critical, UrgencyImmediate
	case p > c.t.High:
		a.Level, a.Urgency = High, UrgencyImmediate
	case p > c.t.Medium:
		a.Level = Medium
	}
	return a
}
