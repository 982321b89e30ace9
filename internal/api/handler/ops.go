package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/response"
	"github.com/NoamTeshuva/pedestrian-web/internal/provider/resilience"
)

// Pinger checks a dependency's reachability. Satisfied by pgxpool.Pool
// and by *modelserver.Client (via Healthy).
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandlerConfig carries the dependencies of the ops surface.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string

	// Database is optional; nil skips the database readiness check.
	Database Pinger

	// Registry reports per-upstream circuit health on the status endpoint.
	Registry *resilience.Registry
}

// OpsHandler handles the operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	database  Pinger
	registry  *resilience.Registry
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		database:  cfg.Database,
		registry:  cfg.Registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness. Fails when the
// database is configured but unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem and upstream health.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       now,
		Subsystems: h.subsystems(r.Context()),
	}

	if h.registry != nil {
		for _, upstream := range h.registry.GetAllHealth() {
			status.Upstreams = append(status.Upstreams, toUpstreamStatus(upstream))
		}
	}

	for _, sub := range status.Subsystems {
		if sub.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusDegraded
		}
	}
	for _, up := range status.Upstreams {
		if up.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	if h.database == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
	if err := h.database.Ping(pingCtx); err != nil {
		detail := err.Error()
		status.Status = models.HealthStatusFail
		status.Detail = &detail
	}
	return []models.SubsystemStatus{status}
}

func toUpstreamStatus(health *resilience.ProviderHealth) models.UpstreamStatus {
	status := models.UpstreamStatus{
		Name:   health.Name,
		Status: models.HealthStatusOK,
	}
	switch {
	case health.IsUnhealthy():
		status.Status = models.HealthStatusFail
	case health.IsDegraded():
		status.Status = models.HealthStatusDegraded
	}
	if health.LastSuccessAt != nil {
		ts := models.Timestamp(*health.LastSuccessAt)
		status.LastSuccessAt = &ts
	}
	if health.LastFailureAt != nil {
		ts := models.Timestamp(*health.LastFailureAt)
		status.LastFailureAt = &ts
	}
	if health.LastError != "" {
		msg := health.LastError
		status.Message = &msg
	}
	return status
}
