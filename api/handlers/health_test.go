package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthHandler_Liveness(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(zap.NewNop())
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
}

func TestHealthHandler_ReadyAggregatesChecks(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(zap.NewNop())
	h.RegisterCheck(NewPingHealthCheck("store", func(ctx context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	require.Contains(t, status.Checks, "store")
	assert.Equal(t, "pass", status.Checks["store"].Status)

	// A failing dependency flips readiness to 503.
	h.RegisterCheck(NewPingHealthCheck("redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	rec = httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "fail", status.Checks["redis"].Status)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	assert.Equal(t, "pass", status.Checks["store"].Status)
}

func TestHealthHandler_Version(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(zap.NewNop())
	rec := httptest.NewRecorder()
	h.HandleVersion("1.2.3", "2026-01-01", "abc123")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var env Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, "abc123", data["git_commit"])
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	t.Parallel()

	// Exercised indirectly everywhere; pin the full mapping here.
	assert.Equal(t, http.StatusNotFound, mapErrorCodeToHTTPStatus("NOT_FOUND"))
	assert.Equal(t, http.StatusBadRequest, mapErrorCodeToHTTPStatus("INVALID_REQUEST"))
	assert.Equal(t, http.StatusConflict, mapErrorCodeToHTTPStatus("INVALID_TRANSITION"))
	assert.Equal(t, http.StatusConflict, mapErrorCodeToHTTPStatus("DUPLICATE_ID"))
	assert.Equal(t, http.StatusServiceUnavailable, mapErrorCodeToHTTPStatus("STORE_CLOSED"))
	assert.Equal(t, http.StatusInternalServerError, mapErrorCodeToHTTPStatus("INTERNAL_ERROR"))
	assert.Equal(t, http.StatusInternalServerError, mapErrorCodeToHTTPStatus("SOMETHING_ELSE"))
}
