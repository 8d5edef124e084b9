// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package riskmodel

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ManuGH/riskwatch/internal/features"
	"github.com/ManuGH/riskwatch/internal/log"
	"github.com/ManuGH/riskwatch/internal/metrics"
)

// Options configures a Holder.
type Options struct {
	// ArtifactPath is the optional weight bundle. Empty means heuristic mode.
	ArtifactPath string
	Heuristic    HeuristicParams
	Logger       zerolog.Logger
}

// Holder owns the active Model and swaps it when the artifact changes.
type Holder struct {
	current   atomic.Pointer[Model]
	path      string
	heuristic HeuristicParams
	logger    zerolog.Logger
}

// Load builds the startup model. A missing or invalid artifact falls back to
// the heuristic; the fallback is logged and exported on riskwatch_model_mode.
func Load(opts Options) *Holder {
	h := &Holder{
		path:      opts.ArtifactPath,
		heuristic: opts.Heuristic,
		logger:    opts.Logger,
	}
	if h.path == "" {
		h.swap(NewHeuristic(h.heuristic))
		return h
	}
	m, err := h.loadArtifact()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		h.logger.Info().
			Str(log.FieldEvent, "model.artifact_absent").
			Str(log.FieldPath, h.path).
			Msg("no model artifact yet, using heuristic")
		m = NewHeuristic(h.heuristic)
	case err != nil:
		h.logger.Error().
			Err(err).
			Str(log.FieldEvent, "model.load_failed").
			Str(log.FieldPath, h.path).
			Msg("model artifact unusable, using heuristic")
		m = NewHeuristic(h.heuristic)
	}
	h.swap(m)
	return h
}

// NewHolder wraps a fixed model.
func NewHolder(m *Model, logger zerolog.Logger) *Holder {
	h := &Holder{logger: logger}
	h.swap(m)
	return h
}

// Current returns the active model.
func (h *Holder) Current() *Model {
	return h.current.Load()
}

// Infer scores w with the active model and reports which mode answered.
func (h *Holder) Infer(ctx context.Context, w features.Window) (float64, Mode, error) {
	m := h.Current()
	p, err := m.Infer(ctx, w)
	return p, m.Mode(), err
}

// Reload re-reads the artifact. On failure the previous model stays active.
func (h *Holder) Reload() error {
	m, err := h.loadArtifact()
	if err != nil {
		metrics.RecordModelReload("error")
		h.logger.Error().
			Err(err).
			Str(log.FieldEvent, "model.reload_failed").
			Str(log.FieldPath, h.path).
			Str(log.FieldModelMode, string(h.Current().Mode())).
			Msg("model reload failed, keeping previous model")
		return err
	}
	metrics.RecordModelReload("success")
	h.swap(m)
	return nil
}

func (h *Holder) loadArtifact() (*Model, error) {
	a, err := LoadArtifact(h.path)
	if err != nil {
		return nil, err
	}
	return NewFromArtifact(a, h.path)
}

func (h *Holder) swap(m *Model) {
	h.current.Store(m)
	metrics.SetModelMode(string(m.Mode()))

	if m.Fallback() {
		h.logger.Warn().
			Str(log.FieldEvent, "model.fallback_active").
			Str(log.FieldModelMode, string(m.Mode())).
			Str(log.FieldModelSource, m.Source()).
			Msg("risk model running without trained weights; scores are unvalidated")
		return
	}
	h.logger.Info().
		Str(log.FieldEvent, "model.loaded").
		Str(log.FieldModelMode, string(m.Mode())).
		Str(log.FieldModelSource, m.Source()).
		Msg("risk model loaded")
}
