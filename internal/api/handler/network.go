package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/models"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/response"
	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/geocode"
	"github.com/NoamTeshuva/pedestrian-web/internal/network"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/pkg/polyline"
)

// PlaceResolver geocodes a place name. Satisfied by *geocode.Resolver.
type PlaceResolver interface {
	Resolve(ctx context.Context, name string, viewport *geo.BoundingBox, countryHint string) (*geocode.ResolvedLocation, error)
}

// NetworkHandler handles GET /v1/base-network.
type NetworkHandler struct {
	service  *network.Service
	resolver PlaceResolver
}

// NewNetworkHandler creates a NetworkHandler.
func NewNetworkHandler(service *network.Service, resolver PlaceResolver) *NetworkHandler {
	return &NetworkHandler{service: service, resolver: resolver}
}

// BaseNetwork handles GET /v1/base-network - fetch the walkable street
// network for a bounding box or a place name, without predictions. The
// format parameter selects GeoJSON (default) or encoded polyline
// segments.
func (h *NetworkHandler) BaseNetwork(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	place := query.Get("place")
	rawBBox := query.Get("bbox")
	if place == "" && rawBBox == "" {
		response.BadRequest(w, r, "place or bbox is required", nil)
		return
	}

	format := query.Get("format")
	if format == "" {
		format = "geojson"
	}
	if format != "geojson" && format != "polyline" {
		response.BadRequest(w, r, "invalid format", []models.FieldError{
			{Field: "format", Message: "must be geojson or polyline", Code: "INVALID_VALUE"},
		})
		return
	}

	var box geo.BoundingBox
	if rawBBox != "" {
		parsed, err := geo.ParseBBox(rawBBox)
		if err != nil {
			response.BadRequest(w, r, "invalid bbox", []models.FieldError{
				{Field: "bbox", Message: "must be west,south,east,north", Code: "MALFORMED"},
			})
			return
		}
		box = parsed
	} else {
		resolved, err := h.resolver.Resolve(r.Context(), place, nil, "")
		if err != nil {
			if errors.Is(err, geocode.ErrNoLocationFound) {
				response.NotFound(w, r, "no location found for place")
				return
			}
			response.ServiceUnavailable(w, r, "geocoding unavailable")
			return
		}
		if !resolved.BoundingBox.Valid() {
			response.NotFound(w, r, "no usable area for place")
			return
		}
		box = resolved.BoundingBox
	}

	net, err := h.service.WalkNetwork(r.Context(), box)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidBBox) {
			response.BadRequest(w, r, "invalid bbox", nil)
			return
		}
		response.ServiceUnavailable(w, r, "street network source unavailable")
		return
	}

	resp := models.BaseNetworkResponse{
		Place: place,
		BBox:  &box,
		Stats: net.Stats,
	}
	if format == "polyline" {
		resp.Segments = toPolylineSegments(net.GeoJSON)
	} else {
		resp.GeoJSON = net.GeoJSON
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// toPolylineSegments re-encodes LineString features as polyline strings.
// GeoJSON coordinates are [lon, lat] pairs.
func toPolylineSegments(fc *predict.FeatureCollection) []models.PolylineSegment {
	if fc == nil {
		return nil
	}

	segments := make([]models.PolylineSegment, 0, len(fc.Features))
	for _, feature := range fc.Features {
		coords := make([]polyline.Coordinate, 0, len(feature.Geometry.Coordinates))
		for _, pair := range feature.Geometry.Coordinates {
			if len(pair) < 2 {
				continue
			}
			coords = append(coords, polyline.Coordinate{Lat: pair[1], Lon: pair[0]})
		}

		segment := models.PolylineSegment{Polyline: polyline.Encode(coords)}
		if id, ok := feature.Properties["edge_id"].(string); ok {
			segment.EdgeID = id
		}
		if highway, ok := feature.Properties["highway"].(string); ok {
			segment.Highway = highway
		}
		if length, ok := feature.Properties["length"].(float64); ok {
			segment.LengthM = length
		}
		segments = append(segments, segment)
	}
	return segments
}
