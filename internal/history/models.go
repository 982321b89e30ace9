// Package history records completed searches for the admin surface.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a missing history record.
var ErrNotFound = errors.New("history record not found")

// Record is one completed search.
type Record struct {
	ID           string    `json:"id"`
	Place        string    `json:"place"`
	Lat          float64   `json:"lat,omitempty"`
	Lon          float64   `json:"lon,omitempty"`
	CountryHint  string    `json:"countryHint,omitempty"`
	SegmentCount int       `json:"segmentCount"`
	WidenedKm    float64   `json:"widenedKm"`
	DurationMS   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository defines the storage interface for search history.
type Repository interface {
	// Save stores a record.
	Save(ctx context.Context, rec *Record) error

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]*Record, error)
}
