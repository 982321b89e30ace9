// Package geo provides the bounding-box and distance math shared by the
// geocoding, prediction, and network layers.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// Degrees of latitude per kilometer are effectively constant;
	// longitude shrinks with cos(lat).
	kmPerDegreeLat = 110.574
	kmPerDegreeLon = 111.320

	earthRadiusM = 6371000.0
)

// ErrInvalidBBox indicates a bounding box string or geometry that cannot
// be used for a query.
var ErrInvalidBBox = errors.New("invalid bounding box")

// BoundingBox is a geographic rectangle in degrees.
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Valid reports whether the box has positive extent and lies within
// coordinate range.
func (b BoundingBox) Valid() bool {
	if b.South < -90 || b.North > 90 || b.West < -180 || b.East > 180 {
		return false
	}
	return b.North > b.South && b.East > b.West
}

// Area returns the box area in square degrees.
func (b BoundingBox) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return (b.North - b.South) * (b.East - b.West)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// String renders the box in the west,south,east,north query form used by
// the model server and the original frontend.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.West, b.South, b.East, b.North)
}

// ParseBBox parses a "west,south,east,north" string.
func ParseBBox(s string) (BoundingBox, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: want w,s,e,n, got %q", ErrInvalidBBox, s)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %q", ErrInvalidBBox, s)
		}
		vals[i] = v
	}

	box := BoundingBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	if !box.Valid() {
		return BoundingBox{}, fmt.Errorf("%w: %q", ErrInvalidBBox, s)
	}
	return box, nil
}

// RadiusBox returns the enclosing rectangle of a radiusKm buffer around
// the given point: every point within the radius falls inside the box.
func RadiusBox(lat, lon, radiusKm float64) BoundingBox {
	dLat := radiusKm / kmPerDegreeLat

	// Longitude degrees shrink toward the poles; clamp the cosine so the
	// box stays finite at extreme latitudes.
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := radiusKm / (kmPerDegreeLon * cosLat)

	box := BoundingBox{
		West:  lon - dLon,
		South: lat - dLat,
		East:  lon + dLon,
		North: lat + dLat,
	}
	if box.South < -90 {
		box.South = -90
	}
	if box.North > 90 {
		box.North = 90
	}
	return box
}

// DistanceMeters returns the haversine distance between two points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
