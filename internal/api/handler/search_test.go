package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/geocode"
	"github.com/NoamTeshuva/pedestrian-web/internal/history"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/search"
)

type fakeResolver struct {
	resolved *geocode.ResolvedLocation
	err      error
}

func (f *fakeResolver) Resolve(ctx context.Context, name string, viewport *geo.BoundingBox, countryHint string) (*geocode.ResolvedLocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resolved, nil
}

type fakePredictor struct {
	result *predict.Result
	err    error
}

func (f *fakePredictor) Predict(ctx context.Context, req predict.Request) (*predict.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func denseResult(n int) *predict.Result {
	features := make([]predict.Feature, n)
	for i := range features {
		features[i] = predict.Feature{
			Type:     "Feature",
			Geometry: predict.Geometry{Type: "LineString", Coordinates: [][]float64{{34.77, 32.08}, {34.78, 32.09}}},
		}
	}
	return &predict.Result{
		Success: true,
		GeoJSON: &predict.FeatureCollection{Type: "FeatureCollection", Features: features},
	}
}

func telAvivResolved() *geocode.ResolvedLocation {
	return &geocode.ResolvedLocation{
		Lat:         32.0853,
		Lon:         34.7818,
		BoundingBox: geo.BoundingBox{West: 34.74, South: 32.03, East: 34.82, North: 32.15},
		CountryHint: "il",
		DisplayName: "Tel Aviv, Israel",
	}
}

func newSearchManager(resolver search.Resolver, predictor search.Predictor) *search.Manager {
	return search.NewManager(search.ManagerConfig{
		Resolver:  resolver,
		Predictor: predictor,
		History:   history.NewInMemoryRepository(),
		Logger:    zerolog.Nop(),
	})
}

func TestSearchHandler_Search_Success(t *testing.T) {
	manager := newSearchManager(
		&fakeResolver{resolved: telAvivResolved()},
		&fakePredictor{result: denseResult(120)},
	)
	h := NewSearchHandler(manager)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?place=Tel+Aviv&season=summer&week_type=weekday&time_of_day=morning", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Tel Aviv", resp.Place)
	assert.Equal(t, "summer", resp.Parameters.Season)
	assert.Equal(t, "weekday", resp.Parameters.WeekType)
	assert.Equal(t, "morning", resp.Parameters.TimeOfDay)
	require.NotNil(t, resp.Resolved)
	assert.Equal(t, "il", resp.Resolved.CountryHint)
	require.NotNil(t, resp.Prediction)
	assert.Equal(t, 120, resp.Prediction.FeatureCount())
	assert.Zero(t, resp.WidenedKm)
}

func TestSearchHandler_Search_MissingPlace(t *testing.T) {
	h := NewSearchHandler(newSearchManager(
		&fakeResolver{resolved: telAvivResolved()},
		&fakePredictor{result: denseResult(1)},
	))

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestSearchHandler_Search_InvalidViewport(t *testing.T) {
	h := NewSearchHandler(newSearchManager(
		&fakeResolver{resolved: telAvivResolved()},
		&fakePredictor{result: denseResult(1)},
	))

	req := httptest.NewRequest(http.MethodGet, "/v1/search?place=x&viewport=not-a-bbox", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_Search_InvalidSeason(t *testing.T) {
	h := NewSearchHandler(newSearchManager(
		&fakeResolver{resolved: telAvivResolved()},
		&fakePredictor{result: denseResult(1)},
	))

	req := httptest.NewRequest(http.MethodGet, "/v1/search?place=x&season=monsoon", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_Search_UpstreamDown(t *testing.T) {
	h := NewSearchHandler(newSearchManager(
		&fakeResolver{resolved: telAvivResolved()},
		&fakePredictor{err: errors.New("connect refused")},
	))

	req := httptest.NewRequest(http.MethodGet, "/v1/search?place=Tel+Aviv", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchHandler_Search_GeocodeFailureStillSucceeds(t *testing.T) {
	h := NewSearchHandler(newSearchManager(
		&fakeResolver{err: errors.New("nominatim down")},
		&fakePredictor{result: denseResult(60)},
	))

	req := httptest.NewRequest(http.MethodGet, "/v1/search?place=Tel+Aviv", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Resolved)
	require.NotEmpty(t, resp.Notices)
	assert.Equal(t, "warning", resp.Notices[0].Level)
}

func TestSessionID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	req.Header.Set("X-Session-Id", "abc-123")
	assert.Equal(t, "abc-123", sessionID(req))

	req = httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "203.0.113.7", sessionID(req))

	req.RemoteAddr = "203.0.113.8"
	assert.Equal(t, "203.0.113.8", sessionID(req))
}
