// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package riskmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/riskwatch/internal/features"
)

// Architecture of the shipped recurrent classifier.
const (
	ArtifactVersion = 1
	HiddenSize      = 64
	NumLayers       = 2
)

// Artifact origins.
const (
	OriginTrained = "trained"
	OriginInit    = "init"
)

// ErrShape is returned for a weight bundle whose dimensions do not line up.
var ErrShape = errors.New("riskmodel: artifact shape mismatch")

// LayerWeights holds one LSTM layer. Gate rows are stacked i, f, g, o, so
// WIH is 4H x in and WHH is 4H x H.
type LayerWeights struct {
	WIH [][]float64 `json:"w_ih"`
	WHH [][]float64 `json:"w_hh"`
	BIH []float64   `json:"b_ih"`
	BHH []float64   `json:"b_hh"`
}

// Readout is the final linear layer (1 x H).
type Readout struct {
	W [][]float64 `json:"w"`
	B []float64   `json:"b"`
}

// Artifact is the on-disk weight bundle.
type Artifact struct {
	Version    int            `json:"version"`
	Origin     string         `json:"origin"`
	Seed       uint64         `json:"seed,omitempty"`
	InputSize  int            `json:"input_size"`
	HiddenSize int            `json:"hidden_size"`
	NumLayers  int            `json:"num_layers"`
	Layers     []LayerWeights `json:"layers"`
	FC         Readout        `json:"fc"`
}

// Validate checks that every matrix agrees with the declared sizes.
func (a *Artifact) Validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrShape, a.Version)
	}
	if a.InputSize != features.Size {
		return fmt.Errorf("%w: input_size %d, want %d", ErrShape, a.InputSize, features.Size)
	}
	if a.HiddenSize <= 0 || a.NumLayers <= 0 {
		return fmt.Errorf("%w: hidden_size=%d num_layers=%d", ErrShape, a.HiddenSize, a.NumLayers)
	}
	if len(a.Layers) != a.NumLayers {
		return fmt.Errorf("%w: %d layers, want %d", ErrShape, len(a.Layers), a.NumLayers)
	}
	h := a.HiddenSize
	for i, l := range a.Layers {
		in := h
		if i == 0 {
			in = a.InputSize
		}
		if err := checkMatrix(l.WIH, 4*h, in); err != nil {
			return fmt.Errorf("%w: layer %d w_ih: %v", ErrShape, i, err)
		}
		if err := checkMatrix(l.WHH, 4*h, h); err != nil {
			return fmt.Errorf("%w: layer %d w_hh: %v", ErrShape, i, err)
		}
		if len(l.BIH) != 4*h || len(l.BHH) != 4*h {
			return fmt.Errorf("%w: layer %d bias length %d/%d, want %d", ErrShape, i, len(l.BIH), len(l.BHH), 4*h)
		}
	}
	if err := checkMatrix(a.FC.W, 1, h); err != nil {
		return fmt.Errorf("%w: fc.w: %v", ErrShape, err)
	}
	if len(a.FC.B) != 1 {
		return fmt.Errorf("%w: fc.b length %d, want 1", ErrShape, len(a.FC.B))
	}
	return nil
}

func checkMatrix(m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%d rows, want %d", len(m), rows)
	}
	for r, row := range m {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d cols, want %d", r, len(row), cols)
		}
	}
	return nil
}

// ParseArtifact decodes and validates a weight bundle.
func ParseArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Origin == "" {
		a.Origin = OriginTrained
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadArtifact reads a weight bundle from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return ParseArtifact(data)
}

// SaveArtifact writes a validated bundle atomically.
func SaveArtifact(path string, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// InitWeights returns freshly initialized weights for the shipped
// architecture, drawn uniformly from +-1/sqrt(hidden). The same seed always
// yields the same bundle.
func InitWeights(seed uint64) *Artifact {
	return initWeights(seed, HiddenSize, NumLayers)
}

func initWeights(seed uint64, hidden, layers int) *Artifact {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	k := 1 / math.Sqrt(float64(hidden))
	uniform := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = (rng.Float64()*2 - 1) * k
		}
		return out
	}
	matrix := func(rows, cols int) [][]float64 {
		out := make([][]float64, rows)
		for r := range out {
			out[r] = uniform(cols)
		}
		return out
	}

	a := &Artifact{
		Version:    ArtifactVersion,
		Origin:     OriginInit,
		Seed:       seed,
		InputSize:  features.Size,
		HiddenSize: hidden,
		NumLayers:  layers,
	}
	for i := 0; i < layers; i++ {
		in := hidden
		if i == 0 {
			in = features.Size
		}
		a.Layers = append(a.Layers, LayerWeights{
			WIH: matrix(4*hidden, in),
			WHH: matrix(4*hidden, hidden),
			BIH: uniform(4 * hidden),
			BHH: uniform(4 * hidden),
		})
	}
	a.FC = Readout{W: matrix(1, hidden), B: uniform(1)}
	return a
}
