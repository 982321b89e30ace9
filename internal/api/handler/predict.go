package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/response"
	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/search"
)

// Simulator re-scores the network with user edits applied. Satisfied by
// *modelserver.Client.
type Simulator interface {
	Simulate(ctx context.Context, req predict.SimulateRequest) (*predict.FeatureCollection, error)
}

// PredictHandler handles the raw prediction endpoints, bypassing the
// search session machinery.
type PredictHandler struct {
	service   *predict.Service
	simulator Simulator
}

// NewPredictHandler creates a PredictHandler.
func NewPredictHandler(service *predict.Service, simulator Simulator) *PredictHandler {
	return &PredictHandler{service: service, simulator: simulator}
}

// Predict handles GET /v1/predict - score a place or bounding box without
// geocoding or widening.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := predict.Request{Place: query.Get("place")}

	if raw := query.Get("bbox"); raw != "" {
		box, err := geo.ParseBBox(raw)
		if err != nil {
			response.BadRequest(w, r, "invalid bbox", []models.FieldError{
				{Field: "bbox", Message: "must be west,south,east,north", Code: "MALFORMED"},
			})
			return
		}
		req.BBox = &box
	}

	params, err := search.ParseParameters(
		query.Get("season"), query.Get("week_type"), query.Get("time_of_day"), time.Now())
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	req.Season = string(params.Season)
	req.WeekType = string(params.WeekType)
	req.TimeOfDay = string(params.TimeOfDay)
	req.Date = params.RequestTime(time.Now())
	req.Hour = params.RepresentativeHour()

	result, err := h.service.Predict(r.Context(), req)
	if err != nil {
		writePredictError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// Simulate handles POST /v1/simulate - re-score the network with edits.
func (h *PredictHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req predict.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if req.Place == "" && req.BBox == "" {
		response.BadRequest(w, r, "place or bbox is required", nil)
		return
	}
	if len(req.Edits) == 0 {
		response.BadRequest(w, r, "at least one edit is required", []models.FieldError{
			{Field: "edits", Message: "must not be empty", Code: "REQUIRED"},
		})
		return
	}

	collection, err := h.simulator.Simulate(r.Context(), req)
	if err != nil {
		writePredictError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, collection)
}

func writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *predict.Error
	switch {
	case errors.Is(err, predict.ErrMissingScope):
		response.BadRequest(w, r, "place or bbox is required", nil)
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		response.BadRequest(w, r, apiErr.Message, nil)
	case errors.Is(err, predict.ErrMalformedResponse):
		response.InternalError(w, r, "prediction backend returned an unusable response")
	default:
		response.ServiceUnavailable(w, r, "prediction backend unavailable")
	}
}
