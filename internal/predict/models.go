// Package predict provides street-segment pedestrian-volume predictions
// from the model server, with caching.
package predict

import (
	"context"
	"errors"
	"time"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
)

// Sentinel errors for prediction operations.
var (
	// ErrUpstreamUnavailable indicates the model server is unreachable
	// or the circuit breaker is open.
	ErrUpstreamUnavailable = errors.New("prediction service unavailable")

	// ErrMalformedResponse indicates a 2xx response without a usable
	// GeoJSON feature collection.
	ErrMalformedResponse = errors.New("malformed prediction response")

	// ErrMissingScope indicates a request with neither a place name nor
	// a bounding box.
	ErrMissingScope = errors.New("prediction request needs a place or a bounding box")
)

// Provider is the prediction backend.
type Provider interface {
	// Predict scores the street network for a place or bounding box.
	Predict(ctx context.Context, req Request) (*Result, error)

	// Name returns the provider name for logging.
	Name() string
}

// Request scopes one prediction call. Exactly one of Place or BBox
// should be set; BBox wins when both are.
type Request struct {
	Place string
	BBox  *geo.BoundingBox

	// Temporal context, as plain wire values.
	Season    string
	WeekType  string
	TimeOfDay string
	Date      time.Time
	Hour      int
}

// Volume bins are an ordinal classification of predicted pedestrian
// traffic per segment, carried in the volume_bin feature property.
const (
	MinVolumeBin = 1
	MaxVolumeBin = 5
)

// VolumeBins lists all bins in ascending order.
func VolumeBins() []int {
	bins := make([]int, 0, MaxVolumeBin-MinVolumeBin+1)
	for b := MinVolumeBin; b <= MaxVolumeBin; b++ {
		bins = append(bins, b)
	}
	return bins
}

// Geometry is a GeoJSON geometry. Street segments are LineStrings.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// Feature is one street segment with its predicted properties.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NetworkStats is the model server's summary of the extracted network.
type NetworkStats struct {
	NEdges        int     `json:"n_edges"`
	NNodes        int     `json:"n_nodes"`
	TotalLengthKM float64 `json:"total_length_km"`
}

// Validation carries non-fatal warnings from the model server.
type Validation struct {
	Warnings []string `json:"warnings,omitempty"`
}

// Result is one prediction response. Opaque to the search controller
// except for the segment counts.
type Result struct {
	Success        bool               `json:"success"`
	Location       string             `json:"location,omitempty"`
	Timestamp      string             `json:"timestamp,omitempty"`
	ProcessingTime float64            `json:"processing_time,omitempty"`
	NetworkStats   *NetworkStats      `json:"network_stats,omitempty"`
	Validation     *Validation        `json:"validation,omitempty"`
	GeoJSON        *FeatureCollection `json:"geojson"`
}

// SegmentCount returns the effective street-segment count: the edge
// count reported in the network summary, falling back to the number of
// GeoJSON features when no summary is present.
func (r *Result) SegmentCount() int {
	if r.NetworkStats != nil {
		return r.NetworkStats.NEdges
	}
	return r.FeatureCount()
}

// FeatureCount returns the raw number of GeoJSON features.
func (r *Result) FeatureCount() int {
	if r.GeoJSON == nil {
		return 0
	}
	return len(r.GeoJSON.Features)
}

// NetworkEdit is one user-proposed change to the street network.
type NetworkEdit struct {
	EdgeID     string                 `json:"edge_id"`
	Action     string                 `json:"action"` // close, open, retag
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// SimulateRequest asks the model server to re-score the network with
// the given edits applied.
type SimulateRequest struct {
	Place string        `json:"place,omitempty"`
	BBox  string        `json:"bbox,omitempty"` // west,south,east,north
	Edits []NetworkEdit `json:"edits"`
}

// Error provides detailed error information from the model server.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
