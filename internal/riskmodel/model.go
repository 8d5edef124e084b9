// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package riskmodel scores a window of encoded sessions with a probability of
// doomscrolling.
//
// A Model is either backed by LSTM weights (trained, or freshly initialized
// when no trained bundle exists) or by a fixed logistic heuristic. Anything
// other than trained weights is unvalidated and callers must surface the mode.
package riskmodel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ManuGH/riskwatch/internal/features"
)

// Mode tags which variant produced a score.
type Mode string

const (
	ModeTrained   Mode = "trained"
	ModeUntrained Mode = "untrained"
	ModeHeuristic Mode = "heuristic"
)

var (
	// ErrEmptyWindow is returned when asked to score a window with no sessions.
	ErrEmptyWindow = errors.New("riskmodel: empty window")
	// ErrInference is returned when the forward pass does not produce a number.
	ErrInference = errors.New("riskmodel: inference failed")
)

// Model is an immutable scorer; safe for concurrent use.
type Model struct {
	mode      Mode
	source    string
	net       *lstm
	heuristic HeuristicParams
	loadedAt  time.Time
}

// NewFromArtifact builds a weights-backed model. Bundles with origin "init"
// report ModeUntrained.
func NewFromArtifact(a *Artifact, source string) (*Model, error) {
	net, err := newLSTM(a)
	if err != nil {
		return nil, err
	}
	mode := ModeTrained
	if a.Origin == OriginInit {
		mode = ModeUntrained
	}
	return &Model{mode: mode, source: source, net: net, loadedAt: time.Now()}, nil
}

// NewHeuristic builds the heuristic variant.
func NewHeuristic(p HeuristicParams) *Model {
	return &Model{mode: ModeHeuristic, source: "heuristic", heuristic: p, loadedAt: time.Now()}
}

func (m *Model) Mode() Mode          { return m.mode }
func (m *Model) Source() string      { return m.source }
func (m *Model) LoadedAt() time.Time { return m.loadedAt }

// Fallback reports whether the model runs without trained weights.
func (m *Model) Fallback() bool { return m.mode != ModeTrained }

// Infer scores w. The result is always in [0,1].
func (m *Model) Infer(ctx context.Context, w features.Window) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if w.Len <= 0 {
		return 0, ErrEmptyWindow
	}

	var p float64
	switch m.mode {
	case ModeTrained, ModeUntrained:
		p = m.net.forward(w)
	case ModeHeuristic:
		p = m.heuristic.score(w)
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInference, m.mode)
	}

	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w: %s model produced NaN", ErrInference, m.mode)
	}
	return math.Min(1, math.Max(0, p)), nil
}
