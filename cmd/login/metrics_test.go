package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/metrics"
)

func TestMetricsServer_ExposesClientRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.LoginOutcome("challenge")

	srv := newMetricsServer("127.0.0.1:0", reg)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `haulgate_client_login_outcomes_total{outcome="challenge"} 1`)
}

func TestMetricsServer_OnlyServesMetricsPath(t *testing.T) {
	srv := newMetricsServer("127.0.0.1:0", prometheus.NewRegistry())
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
