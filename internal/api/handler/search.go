// Package handler provides the HTTP handlers for the pedestrian volume API.
package handler

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/response"
	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/search"
)

// sessionHeader carries the client session identifier. Sessions scope the
// one-search-at-a-time rule and the carried country hint.
const sessionHeader = "X-Session-Id"

// SearchHandler handles GET /v1/search.
type SearchHandler struct {
	manager *search.Manager
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(manager *search.Manager) *SearchHandler {
	return &SearchHandler{manager: manager}
}

// Search handles GET /v1/search - resolve a place and predict its
// pedestrian volumes, widening the area when the network is sparse.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	place := query.Get("place")
	if place == "" {
		response.BadRequest(w, r, "place is required", []models.FieldError{
			{Field: "place", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	var viewport *geo.BoundingBox
	if raw := query.Get("viewport"); raw != "" {
		box, err := geo.ParseBBox(raw)
		if err != nil {
			response.BadRequest(w, r, "invalid viewport", []models.FieldError{
				{Field: "viewport", Message: "must be west,south,east,north", Code: "MALFORMED"},
			})
			return
		}
		viewport = &box
	}

	params, err := search.ParseParameters(
		query.Get("season"), query.Get("week_type"), query.Get("time_of_day"), time.Now())
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	ctrl := h.manager.Controller(sessionID(r))
	result, err := ctrl.Search(r.Context(), search.Request{
		Place:      place,
		Viewport:   viewport,
		Parameters: params,
	})
	if err != nil {
		switch {
		case errors.Is(err, search.ErrEmptyPlace):
			response.BadRequest(w, r, "place is required", nil)
		case errors.Is(err, search.ErrSearchInProgress):
			response.Conflict(w, r, "a search is already running for this session")
		case errors.Is(err, search.ErrUpstreamUnavailable):
			response.ServiceUnavailable(w, r, "prediction backend unavailable")
		default:
			response.InternalError(w, r, "search failed")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, toSearchResponse(place, params, result))
}

func toSearchResponse(place string, params search.Parameters, result *search.Result) models.SearchResponse {
	resp := models.SearchResponse{
		Place: place,
		Parameters: models.SearchParameters{
			Season:    string(params.Season),
			WeekType:  string(params.WeekType),
			TimeOfDay: string(params.TimeOfDay),
		},
		WidenedKm:  result.WidenedKm,
		Prediction: result.Prediction,
		DurationMS: result.Duration.Milliseconds(),
	}

	if result.Resolved != nil {
		box := result.Resolved.BoundingBox
		resp.Resolved = &models.ResolvedLocation{
			Lat:         result.Resolved.Lat,
			Lon:         result.Resolved.Lon,
			DisplayName: result.Resolved.DisplayName,
			CountryHint: result.Resolved.CountryHint,
			BBox:        &box,
		}
	}

	for _, notice := range result.Notices {
		resp.Notices = append(resp.Notices, models.Notice{Level: notice.Level, Message: notice.Message})
	}

	return resp
}

// sessionID identifies the client session: the session header when present,
// otherwise the client address (already resolved by the RealIP middleware).
func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
