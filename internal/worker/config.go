// Package worker provides background job processing for the pedestrian
// volume service.
package worker

import (
	"time"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
)

// WarmupTarget represents a place whose predictions should be kept warm.
type WarmupTarget struct {
	// Name is the place name handed to the model server.
	Name string

	// Center is the approximate center of the place, used for network
	// warmup.
	Center Point

	// Priority determines warmup order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// WarmupConfig holds configuration for the cache warmup job.
type WarmupConfig struct {
	// Targets are the places to warm. If empty, uses
	// DefaultWarmupTargets.
	Targets []WarmupTarget

	// Concurrency is the number of concurrent warmup operations.
	// Default: 2
	Concurrency int

	// Timeout is the timeout for each warmup operation.
	// Default: 60 seconds
	Timeout time.Duration

	// NetworkRadiusKm is the radius around each target center for
	// street network warmup. Default: 1.5
	NetworkRadiusKm float64

	// WarmPredictions enables prediction cache warmup.
	// Default: true
	WarmPredictions bool

	// WarmNetworks enables street network warmup via Overpass.
	// Default: false; Overpass rate limits make this opt-in.
	WarmNetworks bool
}

// DefaultWarmupConfig returns the default warmup configuration.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Targets:         DefaultWarmupTargets(),
		Concurrency:     2,
		Timeout:         60 * time.Second,
		NetworkRadiusKm: 1.5,
		WarmPredictions: true,
		WarmNetworks:    false,
	}
}

// DefaultWarmupTargets returns the default warmup targets. These are the
// places users search most often, so a cold cache after a deploy still
// answers the common searches quickly.
func DefaultWarmupTargets() []WarmupTarget {
	return []WarmupTarget{
		{
			Name:     "Tel Aviv, Israel",
			Priority: 1,
			Center:   Point{Lat: 32.0853, Lon: 34.7818},
		},
		{
			Name:     "Jerusalem, Israel",
			Priority: 1,
			Center:   Point{Lat: 31.7683, Lon: 35.2137},
		},
		{
			Name:     "Haifa, Israel",
			Priority: 2,
			Center:   Point{Lat: 32.7940, Lon: 34.9896},
		},
		{
			Name:     "Beer Sheva, Israel",
			Priority: 2,
			Center:   Point{Lat: 31.2518, Lon: 34.7913},
		},
		{
			Name:     "Rishon LeZion, Israel",
			Priority: 3,
			Center:   Point{Lat: 31.9730, Lon: 34.7925},
		},
		{
			Name:     "Netanya, Israel",
			Priority: 3,
			Center:   Point{Lat: 32.3215, Lon: 34.8532},
		},
	}
}

// NetworkBox returns the bounding box used for network warmup around a
// target's center.
func (c WarmupConfig) NetworkBox(target WarmupTarget) geo.BoundingBox {
	radius := c.NetworkRadiusKm
	if radius <= 0 {
		radius = 1.5
	}
	return geo.RadiusBox(target.Center.Lat, target.Center.Lon, radius)
}

// TotalTargets returns the number of places to warm.
func (c WarmupConfig) TotalTargets() int {
	return len(c.Targets)
}
