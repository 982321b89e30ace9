package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoamTeshuva/pedestrian-web/internal/geocode"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/pkg/polyline"
)

func TestNetworkHandler_BaseNetwork_MissingScope(t *testing.T) {
	h := NewNetworkHandler(nil, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/v1/base-network", nil)
	rec := httptest.NewRecorder()

	h.BaseNetwork(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNetworkHandler_BaseNetwork_InvalidBBox(t *testing.T) {
	h := NewNetworkHandler(nil, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/v1/base-network?bbox=1,2,3", nil)
	rec := httptest.NewRecorder()

	h.BaseNetwork(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNetworkHandler_BaseNetwork_InvalidFormat(t *testing.T) {
	h := NewNetworkHandler(nil, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/v1/base-network?bbox=34.74,32.03,34.82,32.15&format=kml", nil)
	rec := httptest.NewRecorder()

	h.BaseNetwork(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNetworkHandler_BaseNetwork_PlaceNotFound(t *testing.T) {
	h := NewNetworkHandler(nil, &fakeResolver{err: geocode.ErrNoLocationFound})

	req := httptest.NewRequest(http.MethodGet, "/v1/base-network?place=nowhere", nil)
	rec := httptest.NewRecorder()

	h.BaseNetwork(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNetworkHandler_BaseNetwork_GeocodeUnavailable(t *testing.T) {
	h := NewNetworkHandler(nil, &fakeResolver{err: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/v1/base-network?place=Tel+Aviv", nil)
	rec := httptest.NewRecorder()

	h.BaseNetwork(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestToPolylineSegments(t *testing.T) {
	fc := &predict.FeatureCollection{
		Type: "FeatureCollection",
		Features: []predict.Feature{
			{
				Type: "Feature",
				Geometry: predict.Geometry{
					Type: "LineString",
					Coordinates: [][]float64{
						{34.7692, 32.0637},
						{34.7701, 32.0645},
					},
				},
				Properties: map[string]interface{}{
					"edge_id": "e_42",
					"highway": "residential",
					"length":  123.4,
				},
			},
		},
	}

	segments := toPolylineSegments(fc)
	require.Len(t, segments, 1)

	seg := segments[0]
	assert.Equal(t, "e_42", seg.EdgeID)
	assert.Equal(t, "residential", seg.Highway)
	assert.Equal(t, 123.4, seg.LengthM)

	// The encoded geometry round-trips back to the original points.
	coords := polyline.Decode(seg.Polyline)
	require.Len(t, coords, 2)
	assert.InDelta(t, 32.0637, coords[0].Lat, 0.00001)
	assert.InDelta(t, 34.7692, coords[0].Lon, 0.00001)
	assert.InDelta(t, 32.0645, coords[1].Lat, 0.00001)
	assert.InDelta(t, 34.7701, coords[1].Lon, 0.00001)
}

func TestToPolylineSegments_Nil(t *testing.T) {
	assert.Nil(t, toPolylineSegments(nil))
}
