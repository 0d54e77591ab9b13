package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/smokefree/internal/monitoring"
)

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report monitoring.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "database", report.Checks[0].Component)
	assert.Equal(t, "storage", report.Checks[1].Component)

	env.signIn("U1")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Checks, 1)
	assert.Equal(t, "1 active", report.Checks[0].Details)
}

func TestHealthReportsUnavailableWhenProbeFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("storage", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "slow"}
	}))
	handler := NewHealthHandler(manager)

	r := gin.New()
	r.GET("/health", handler.Health)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}
