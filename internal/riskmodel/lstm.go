// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package riskmodel

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ManuGH/riskwatch/internal/features"
)

// lstm is a stacked LSTM with a linear+sigmoid readout on the last hidden
// state. Initial hidden and cell states are zero.
type lstm struct {
	layers []lstmLayer
	fcW    *mat.VecDense
	fcB    float64
}

// lstmLayer holds gate rows stacked i, f, g, o.
type lstmLayer struct {
	hidden   int
	wih, whh *mat.Dense
	bias     *mat.VecDense // b_ih + b_hh
}

func newLSTM(a *Artifact) (*lstm, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	n := &lstm{
		fcW: mat.NewVecDense(a.HiddenSize, append([]float64(nil), a.FC.W[0]...)),
		fcB: a.FC.B[0],
	}
	for _, l := range a.Layers {
		bias := mat.NewVecDense(len(l.BIH), append([]float64(nil), l.BIH...))
		bias.AddVec(bias, mat.NewVecDense(len(l.BHH), l.BHH))
		n.layers = append(n.layers, lstmLayer{
			hidden: a.HiddenSize,
			wih:    denseOf(l.WIH),
			whh:    denseOf(l.WHH),
			bias:   bias,
		})
	}
	return n, nil
}

// denseOf copies a validated row-major matrix.
func denseOf(rows [][]float64) *mat.Dense {
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data)
}

// forward runs the full padded window, oldest first.
func (n *lstm) forward(w features.Window) float64 {
	seq := make([]mat.Vector, features.WindowSize)
	for t := range w.Vectors {
		v := w.Vectors[t]
		seq[t] = mat.NewVecDense(features.Size, v[:])
	}
	for i := range n.layers {
		seq = n.layers[i].run(seq)
	}
	return sigmoid(n.fcB + mat.Dot(n.fcW, seq[len(seq)-1]))
}

func (l *lstmLayer) run(xs []mat.Vector) []mat.Vector {
	H := l.hidden
	h := mat.NewVecDense(H, nil)
	c := make([]float64, H)
	gates := mat.NewVecDense(4*H, nil)
	rec := mat.NewVecDense(4*H, nil)
	out := make([]mat.Vector, len(xs))

	for t, x := range xs {
		gates.MulVec(l.wih, x)
		rec.MulVec(l.whh, h)
		gates.AddVec(gates, rec)
		gates.AddVec(gates, l.bias)

		next := mat.NewVecDense(H, nil)
		for j := 0; j < H; j++ {
			i := sigmoid(gates.AtVec(j))
			f := sigmoid(gates.AtVec(H + j))
			g := math.Tanh(gates.AtVec(2*H + j))
			o := sigmoid(gates.AtVec(3*H + j))
			c[j] = f*c[j] + i*g
			next.SetVec(j, o*math.Tanh(c[j]))
		}
		h = next
		out[t] = h
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Logit is the inverse of the readout sigmoid.
func Logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
