// Package network extracts the pedestrian street network for a bounding box
// from OpenStreetMap via the Overpass API.
package network

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	overpass "github.com/serjvanilla/go-overpass"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
)

// DefaultEndpoint is the public Overpass API instance.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

const (
	defaultTimeout     = 30 * time.Second
	defaultConcurrency = 2
)

// Highways excluded from the walk network. Everything else tagged highway=*
// is considered walkable unless foot access is explicitly denied.
const nonWalkableFilter = `motorway|motorway_link|trunk|trunk_link|motorway_junction|raceway|proposed|construction`

// querier abstracts the Overpass client for testing.
type querier interface {
	Query(query string) (overpass.Result, error)
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Endpoint is the Overpass API URL. Empty means DefaultEndpoint.
	Endpoint string

	// Timeout bounds a single Overpass call. Zero means 30 seconds.
	Timeout time.Duration

	Logger zerolog.Logger

	// client overrides the Overpass client in tests.
	client querier
}

// Service fetches walk networks from Overpass.
type Service struct {
	client  querier
	timeout time.Duration
	logger  zerolog.Logger
}

// Network is an extracted walk network with summary statistics.
type Network struct {
	GeoJSON *predict.FeatureCollection `json:"geojson"`
	Stats   predict.NetworkStats       `json:"network_stats"`
}

// NewService creates a walk-network service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := cfg.client
	if client == nil {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		c := overpass.NewWithSettings(cfg.Endpoint, defaultConcurrency, httpClient)
		client = &c
	}

	return &Service{
		client:  client,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With().Str("component", "network").Logger(),
	}
}

// WalkNetwork fetches all walkable ways inside the bounding box and returns
// them as GeoJSON LineStrings. Edges are ordered by way ID so repeated calls
// for the same box produce identical output.
func (s *Service) WalkNetwork(ctx context.Context, box geo.BoundingBox) (*Network, error) {
	if !box.Valid() {
		return nil, geo.ErrInvalidBBox
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	result, err := s.client.Query(s.walkQuery(box))
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	network := buildNetwork(&result)

	s.logger.Debug().
		Str("bbox", box.String()).
		Int("edges", network.Stats.NEdges).
		Dur("duration", time.Since(start)).
		Msg("walk network extracted")

	return network, nil
}

// walkQuery builds the Overpass QL for walkable ways in the box. Overpass
// bbox filters take (south,west,north,east).
func (s *Service) walkQuery(box geo.BoundingBox) string {
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", box.South, box.West, box.North, box.East)
	return fmt.Sprintf(`
		[out:json][timeout:%d];
		(
			way["highway"]["highway"!~"%s"]["foot"!~"no"]["access"!~"private"](%s);
		);
		out body;
		>;
		out skel qt;
	`, int(s.timeout.Seconds()), nonWalkableFilter, bbox)
}

func buildNetwork(result *overpass.Result) *Network {
	ids := make([]int64, 0, len(result.Ways))
	for id, way := range result.Ways {
		if way == nil || len(way.Nodes) < 2 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	features := make([]predict.Feature, 0, len(ids))
	nodeSet := make(map[int64]struct{})
	var totalMeters float64

	for _, id := range ids {
		way := result.Ways[id]

		coords := make([][]float64, 0, len(way.Nodes))
		var lengthMeters float64
		for i, node := range way.Nodes {
			coords = append(coords, []float64{node.Lon, node.Lat})
			nodeSet[node.ID] = struct{}{}
			if i > 0 {
				prev := way.Nodes[i-1]
				lengthMeters += geo.DistanceMeters(prev.Lat, prev.Lon, node.Lat, node.Lon)
			}
		}
		totalMeters += lengthMeters

		features = append(features, predict.Feature{
			Type: "Feature",
			Geometry: predict.Geometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: map[string]interface{}{
				"edge_id": fmt.Sprintf("e_%d", id),
				"osmid":   id,
				"highway": way.Tags["highway"],
				"length":  lengthMeters,
			},
		})
	}

	return &Network{
		GeoJSON: &predict.FeatureCollection{
			Type:     "FeatureCollection",
			Features: features,
		},
		Stats: predict.NetworkStats{
			NEdges:        len(features),
			NNodes:        len(nodeSet),
			TotalLengthKM: totalMeters / 1000,
		},
	}
}
