package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/provider/resilience"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestOpsHandler_HealthCheck(t *testing.T) {
	h := NewOpsHandler(OpsHandlerConfig{Version: "1.2.3", BuildTime: "2026-08-28"})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Details["version"])
}

func TestOpsHandler_ReadinessCheck_NoDatabase(t *testing.T) {
	h := NewOpsHandler(OpsHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", nil)
	rec := httptest.NewRecorder()

	h.ReadinessCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpsHandler_ReadinessCheck_DatabaseDown(t *testing.T) {
	h := NewOpsHandler(OpsHandlerConfig{Database: &fakePinger{err: errors.New("connection refused")}})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", nil)
	rec := httptest.NewRecorder()

	h.ReadinessCheck(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOpsHandler_SystemStatus_Healthy(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("modelserver", resilience.NewClient(resilience.DefaultClientConfig("modelserver")))

	h := NewOpsHandler(OpsHandlerConfig{
		Database: &fakePinger{},
		Registry: registry,
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil)
	rec := httptest.NewRecorder()

	h.SystemStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "database", status.Subsystems[0].Name)
	require.Len(t, status.Upstreams, 1)
	assert.Equal(t, "modelserver", status.Upstreams[0].Name)
}

func TestOpsHandler_SystemStatus_DegradedOnDatabaseFailure(t *testing.T) {
	h := NewOpsHandler(OpsHandlerConfig{
		Database: &fakePinger{err: errors.New("connection refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", nil)
	rec := httptest.NewRecorder()

	h.SystemStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, models.HealthStatusFail, status.Subsystems[0].Status)
}
