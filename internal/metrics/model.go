// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modelMode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "riskwatch_model_mode",
		Help: "Active risk model mode (active mode=1; others 0). Anything but trained is unvalidated.",
	}, []string{"mode"})

	modelReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskwatch_model_reloads_total",
		Help: "Risk model artifact reload attempts by result",
	}, []string{"result"})
)

// ModelModes lists every label value of riskwatch_model_mode.
var ModelModes = []string{"trained", "untrained", "heuristic"}

// SetModelMode flips the mode gauge to the given mode.
func SetModelMode(mode string) {
	for _, m := range ModelModes {
		value := 0.0
		if m == mode {
			value = 1.0
		}
		modelMode.WithLabelValues(m).Set(value)
	}
}

// RecordModelReload counts an artifact reload attempt ("success" or "error").
func RecordModelReload(result string) {
	modelReloads.WithLabelValues(result).Inc()
}

// ModelModeGauge exposes the gauge for tests.
func ModelModeGauge(mode string) prometheus.Gauge {
	return modelMode.WithLabelValues(mode)
}
