// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package riskmodel

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/riskwatch/internal/features"
	"github.com/ManuGH/riskwatch/internal/screentime"
)

func window(n int) features.Window {
	evts := make([]screentime.Event, n)
	for i := range evts {
		evts[i] = screentime.Event{
			UserID:           "u1",
			AppPackageName:   "com.example.feed",
			TimeOfDay:        screentime.Night,
			SessionDuration:  1_800_000,
			ScrollDistance:   5000,
			InteractionCount: 20,
			BatteryLevel:     40,
		}
	}
	return features.EncodeWindow(evts)
}

// tinyArtifact is a one-unit, one-layer network whose only non-zero weights
// are the candidate gate bias and the readout weight.
func tinyArtifact() *Artifact {
	a := initWeights(1, 1, 1)
	zero := func(m [][]float64) {
		for _, row := range m {
			for i := range row {
				row[i] = 0
			}
		}
	}
	zero(a.Layers[0].WIH)
	zero(a.Layers[0].WHH)
	a.Layers[0].BIH = []float64{0, 0, 10, 0}
	a.Layers[0].BHH = []float64{0, 0, 0, 0}
	a.FC = Readout{W: [][]float64{{1}}, B: []float64{0}}
	a.Origin = OriginTrained
	return a
}

func TestLSTM_MatchesHandComputedRecurrence(t *testing.T) {
	m, err := NewFromArtifact(tinyArtifact(), "test")
	require.NoError(t, err)
	assert.Equal(t, ModeTrained, m.Mode())
	assert.False(t, m.Fallback())

	// i = f = o = sigmoid(0) = 0.5, g = tanh(10); inputs do not matter.
	var c, h float64
	for step := 0; step < features.WindowSize; step++ {
		c = 0.5*c + 0.5*math.Tanh(10)
		h = 0.5 * math.Tanh(c)
	}
	want := 1 / (1 + math.Exp(-h))

	got, err := m.Infer(context.Background(), window(3))
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestLSTM_LayerShapes(t *testing.T) {
	a := InitWeights(3)
	n, err := newLSTM(a)
	require.NoError(t, err)
	require.Len(t, n.layers, NumLayers)

	for i, l := range n.layers {
		in := HiddenSize
		if i == 0 {
			in = features.Size
		}
		r, c := l.wih.Dims()
		assert.Equal(t, [2]int{4 * HiddenSize, in}, [2]int{r, c}, "layer %d w_ih", i)
		r, c = l.whh.Dims()
		assert.Equal(t, [2]int{4 * HiddenSize, HiddenSize}, [2]int{r, c}, "layer %d w_hh", i)
		assert.Equal(t, 4*HiddenSize, l.bias.Len())
		assert.InDelta(t, a.Layers[i].BIH[5]+a.Layers[i].BHH[5], l.bias.AtVec(5), 1e-15)
		assert.Equal(t, a.Layers[i].WIH[2][1], l.wih.At(2, 1))
	}
	assert.Equal(t, HiddenSize, n.fcW.Len())
}

func TestModel_Deterministic(t *testing.T) {
	m, err := NewFromArtifact(InitWeights(7), "seed-7")
	require.NoError(t, err)
	assert.Equal(t, ModeUntrained, m.Mode())
	assert.True(t, m.Fallback())

	w := window(10)
	first, err := m.Infer(context.Background(), w)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := m.Infer(context.Background(), w)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.GreaterOrEqual(t, first, 0.0)
	assert.LessOrEqual(t, first, 1.0)
}

func TestModel_EmptyWindow(t *testing.T) {
	for _, m := range []*Model{NewHeuristic(DefaultHeuristic()), mustModel(t, InitWeights(1))} {
		_, err := m.Infer(context.Background(), features.Window{})
		assert.ErrorIs(t, err, ErrEmptyWindow, m.Mode())
	}
}

func TestModel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHeuristic(DefaultHeuristic()).Infer(ctx, window(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_NaNIsAnError(t *testing.T) {
	a := tinyArtifact()
	a.FC.B[0] = math.NaN()
	m := mustModel(t, a)
	_, err := m.Infer(context.Background(), window(1))
	assert.ErrorIs(t, err, ErrInference)
}

func TestHeuristic(t *testing.T) {
	pinned := NewHeuristic(ConstantHeuristic(0.95))
	p, err := pinned.Infer(context.Background(), window(4))
	require.NoError(t, err)
	assert.InDelta(t, 0.95, p, 1e-9)
	assert.Equal(t, ModeHeuristic, pinned.Mode())

	def := NewHeuristic(DefaultHeuristic())
	risky, err := def.Infer(context.Background(), window(5))
	require.NoError(t, err)
	assert.Greater(t, risky, 0.8)

	calm := features.EncodeWindow([]screentime.Event{{
		UserID:           "u2",
		TimeOfDay:        screentime.Morning,
		SessionDuration:  300_000,
		ScrollDistance:   1000,
		InteractionCount: 30,
		BatteryLevel:     90,
	}})
	low, err := def.Infer(context.Background(), calm)
	require.NoError(t, err)
	assert.Less(t, low, 0.4)
}

func TestHeuristic_IgnoresPadding(t *testing.T) {
	def := NewHeuristic(DefaultHeuristic())
	one, err := def.Infer(context.Background(), window(1))
	require.NoError(t, err)
	full, err := def.Infer(context.Background(), window(10))
	require.NoError(t, err)
	assert.InDelta(t, one, full, 1e-12)
}

func TestArtifact_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	want := InitWeights(42)
	require.NoError(t, SaveArtifact(path, want))

	got, err := LoadArtifact(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("artifact mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, HiddenSize, got.HiddenSize)
	assert.Len(t, got.Layers, NumLayers)
}

func TestInitWeights_Seeded(t *testing.T) {
	assert.True(t, cmp.Equal(InitWeights(3), InitWeights(3)))
	assert.False(t, cmp.Equal(InitWeights(3), InitWeights(4)))
}

func TestArtifact_ShapeErrors(t *testing.T) {
	cases := map[string]func(a *Artifact){
		"input size":    func(a *Artifact) { a.InputSize = 6 },
		"layer count":   func(a *Artifact) { a.Layers = a.Layers[:1] },
		"short w_ih":    func(a *Artifact) { a.Layers[0].WIH = a.Layers[0].WIH[1:] },
		"ragged w_hh":   func(a *Artifact) { a.Layers[1].WHH[3] = a.Layers[1].WHH[3][1:] },
		"bias":          func(a *Artifact) { a.Layers[0].BHH = nil },
		"readout width": func(a *Artifact) { a.FC.W[0] = a.FC.W[0][2:] },
		"version":       func(a *Artifact) { a.Version = 9 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := InitWeights(1)
			mutate(a)
			assert.ErrorIs(t, a.Validate(), ErrShape)
			_, err := NewFromArtifact(a, "bad")
			assert.ErrorIs(t, err, ErrShape)
		})
	}
}

func TestParseArtifact_Garbage(t *testing.T) {
	_, err := ParseArtifact([]byte("{"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "missing.json")
	_, err = LoadArtifact(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func mustModel(t *testing.T, a *Artifact) *Model {
	t.Helper()
	m, err := NewFromArtifact(a, "test")
	require.NoError(t, err)
	return m
}
