// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package riskmodel

import "github.com/ManuGH/riskwatch/internal/features"

// HeuristicParams is a logistic score over the mean of each feature across
// the real (non-padding) sessions in a window:
//
//	p = sigmoid(Bias + sum_k w_k * mean(feature_k))
//
// Durations are in minutes and scroll in thousands of pixels after encoding.
type HeuristicParams struct {
	TimeOfDay    float64 `yaml:"timeOfDay"`
	AppCategory  float64 `yaml:"appCategory"`
	Duration     float64 `yaml:"duration"`
	Scroll       float64 `yaml:"scroll"`
	Interactions float64 `yaml:"interactions"`
	Battery      float64 `yaml:"battery"`
	Weekend      float64 `yaml:"weekend"`
	Bias         float64 `yaml:"bias"`
}

// DefaultHeuristic scores long, scroll-heavy, low-interaction sessions late in
// the day as risky. A 30 minute night session with 5000px of scroll and 20
// interactions lands near 0.9; a short morning session near 0.05.
func DefaultHeuristic() HeuristicParams {
	return HeuristicParams{
		TimeOfDay:    1.5,
		Duration:     0.15,
		Scroll:       0.05,
		Interactions: -0.05,
		Weekend:      0.3,
		Bias:         -2.5,
	}
}

// ConstantHeuristic always scores p; handy for pinning behaviour.
func ConstantHeuristic(p float64) HeuristicParams {
	return HeuristicParams{Bias: Logit(p)}
}

func (p HeuristicParams) weights() features.Vector {
	return features.Vector{
		features.TimeOfDay:       p.TimeOfDay,
		features.AppCategory:     p.AppCategory,
		features.Duration:        p.Duration,
		features.ScrollVelocity:  p.Scroll,
		features.InteractionRate: p.Interactions,
		features.Battery:         p.Battery,
		features.WeekendFlag:     p.Weekend,
	}
}

func (p HeuristicParams) score(w features.Window) float64 {
	sessions := w.Real()
	weights := p.weights()
	z := p.Bias
	for k := 0; k < features.Size; k++ {
		var sum float64
		for _, v := range sessions {
			sum += v[k]
		}
		z += weights[k] * sum / float64(len(sessions))
	}
	return sigmoid(z)
}
