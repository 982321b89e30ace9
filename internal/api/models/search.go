package models

import (
	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/history"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
)

// SearchParameters echo the prediction context back to the client.
type SearchParameters struct {
	Season    string `json:"season"`
	WeekType  string `json:"weekType"`
	TimeOfDay string `json:"timeOfDay"`
}

// ResolvedLocation is the geocoding outcome included in a search response.
type ResolvedLocation struct {
	Lat         float64          `json:"lat"`
	Lon         float64          `json:"lon"`
	DisplayName string           `json:"displayName,omitempty"`
	CountryHint string           `json:"countryHint,omitempty"`
	BBox        *geo.BoundingBox `json:"bbox,omitempty"`
}

// Notice is a non-fatal message about how a search was carried out.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Place      string            `json:"place"`
	Parameters SearchParameters  `json:"parameters"`
	Resolved   *ResolvedLocation `json:"resolved,omitempty"`
	WidenedKm  float64           `json:"widenedKm,omitempty"`
	Notices    []Notice          `json:"notices,omitempty"`
	Prediction *predict.Result   `json:"prediction"`
	DurationMS int64             `json:"durationMs"`
}

// BaseNetworkResponse is the body of GET /v1/base-network. Geometry is
// either GeoJSON or encoded polyline segments, depending on the
// requested format.
type BaseNetworkResponse struct {
	Place    string                     `json:"place,omitempty"`
	BBox     *geo.BoundingBox           `json:"bbox,omitempty"`
	Stats    predict.NetworkStats       `json:"network_stats"`
	GeoJSON  *predict.FeatureCollection `json:"geojson,omitempty"`
	Segments []PolylineSegment          `json:"segments,omitempty"`
}

// PolylineSegment is one street segment with its geometry encoded as a
// polyline instead of a GeoJSON coordinate array.
type PolylineSegment struct {
	EdgeID   string  `json:"edge_id"`
	Highway  string  `json:"highway,omitempty"`
	LengthM  float64 `json:"length_m"`
	Polyline string  `json:"polyline"`
}

// HistoryResponse is the body of GET /v1/admin/history.
type HistoryResponse struct {
	Items []*history.Record `json:"items"`
	Count int               `json:"count"`
}

// CacheInvalidateResponse is the body of POST /v1/admin/cache/invalidate.
type CacheInvalidateResponse struct {
	Invalidated bool      `json:"invalidated"`
	Time        Timestamp `json:"time"`
}

// CacheStats is the cache section of the admin status report.
type CacheStats struct {
	TotalEntries int    `json:"totalEntries"`
	FreshEntries int    `json:"freshEntries"`
	Provider     string `json:"provider"`
}
