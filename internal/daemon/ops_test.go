// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/riskwatch/internal/health"
	"github.com/ManuGH/riskwatch/internal/riskmodel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpsFixture(t *testing.T) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	holder := riskmodel.NewHolder(riskmodel.NewHeuristic(riskmodel.DefaultHeuristic()), zerolog.Nop())
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewRedisChecker(client, 0))
	hm.RegisterChecker(health.NewModelChecker(holder))
	return NewOpsRouter(hm, holder), mr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestOpsRouter_Model(t *testing.T) {
	h, _ := newOpsFixture(t)

	w := get(t, h, "/model")
	require.Equal(t, http.StatusOK, w.Code)

	var info ModelInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, riskmodel.ModeHeuristic, info.Mode)
	assert.True(t, info.Fallback)
	assert.False(t, info.LoadedAt.IsZero())
}

func TestOpsRouter_Readiness(t *testing.T) {
	h, mr := newOpsFixture(t)

	w := get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	var resp health.ReadinessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, health.StatusDegraded, resp.Status)

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/readyz").Code)
	// Liveness stays green.
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestOpsRouter_Metrics(t *testing.T) {
	h, _ := newOpsFixture(t)

	w := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "riskwatch_model_mode"))
}

func TestShouldTrace(t *testing.T) {
	for path, want := range map[string]bool{
		"/healthz": false,
		"/readyz":  false,
		"/metrics": false,
		"/model":   true,
	} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		assert.Equal(t, want, shouldTrace(r), path)
	}
}
