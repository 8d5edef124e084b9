// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/riskwatch/internal/health"
	"github.com/ManuGH/riskwatch/internal/log"
	"github.com/ManuGH/riskwatch/internal/riskmodel"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// ModelInfo is the /model response body.
type ModelInfo struct {
	Mode     riskmodel.Mode `json:"mode"`
	Source   string         `json:"source"`
	Fallback bool           `json:"fallback"`
	LoadedAt time.Time      `json:"loadedAt"`
}

// NewOpsRouter builds the internal ops surface.
func NewOpsRouter(hm *health.Manager, holder *riskmodel.Holder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(otelMiddleware("riskwatch-ops"))

	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/model", modelHandler(holder))
	return r
}

func modelHandler(holder *riskmodel.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := holder.Current()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(ModelInfo{
			Mode:     m.Mode(),
			Source:   m.Source(),
			Fallback: m.Fallback(),
			LoadedAt: m.LoadedAt(),
		})
		if err != nil {
			log.WithComponentFromContext(r.Context(), "ops").Error().Err(err).
				Str("event", "model.encode_error").Msg("failed to encode model response")
		}
	}
}

func otelMiddleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return operation + " " + r.URL.Path
			}),
		)
	}
}

// Probes and scrapes are not traced.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}
