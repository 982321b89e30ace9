package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/response"
	"github.com/NoamTeshuva/pedestrian-web/internal/history"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
)

const defaultHistoryLimit = 50

// AdminHandler handles the authenticated admin endpoints.
type AdminHandler struct {
	history history.Repository
	predict *predict.Service
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(repo history.Repository, predictService *predict.Service) *AdminHandler {
	return &AdminHandler{history: repo, predict: predictService}
}

// ListHistory handles GET /v1/admin/history - recent searches, newest first.
func (h *AdminHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			response.BadRequest(w, r, "limit must be between 1 and 500", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and 500", Code: "OUT_OF_RANGE"},
			})
			return
		}
		limit = parsed
	}

	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		response.InternalError(w, r, "failed to load search history")
		return
	}

	response.JSON(w, r, http.StatusOK, models.HistoryResponse{
		Items: records,
		Count: len(records),
	})
}

// InvalidateCache handles POST /v1/admin/cache/invalidate - drop all
// cached predictions.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.predict.InvalidateCache()
	response.JSON(w, r, http.StatusOK, models.CacheInvalidateResponse{
		Invalidated: true,
		Time:        models.Timestamp(time.Now()),
	})
}

// CacheStats handles GET /v1/admin/cache/stats - cache occupancy.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.predict.Stats()
	response.JSON(w, r, http.StatusOK, models.CacheStats{
		TotalEntries: stats.TotalEntries,
		FreshEntries: stats.FreshEntries,
		Provider:     stats.Provider,
	})
}
