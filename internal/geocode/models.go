// Package geocode resolves free-text place names into a best-guess
// point and query region, tolerating geocoding providers that return
// multiple ambiguously-typed candidates in no particular order.
package geocode

import (
	"context"
	"errors"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
)

// Sentinel errors for place resolution.
var (
	// ErrNoLocationFound indicates neither the viewport-scoped nor the
	// global query produced a usable candidate.
	ErrNoLocationFound = errors.New("no location found for place name")

	// ErrEmptyQuery indicates a blank place name.
	ErrEmptyQuery = errors.New("place name is empty")
)

// Candidate is a single geocoder result. Immutable once received.
type Candidate struct {
	Lat float64
	Lon float64

	// Type is the place type reported by the geocoder: city, town,
	// village, hamlet, suburb, neighbourhood, municipality, county,
	// state, country, or anything else.
	Type string

	// Class is the geocoder's result classification, e.g. "place" or
	// "boundary".
	Class string

	// CountryCode is the lower-case ISO 3166-1 alpha-2 code, when the
	// geocoder supplied address details. May be empty.
	CountryCode string

	// Importance is the source-provided relevance score, nominally in
	// [0, 1].
	Importance float64

	// BoundingBox is the candidate's extent, when supplied.
	BoundingBox *geo.BoundingBox

	DisplayName string
}

// ResolvedLocation is the outcome of one successful resolution. It is
// held by the search controller for the duration of a search and
// replaced wholesale on the next one.
type ResolvedLocation struct {
	Lat         float64
	Lon         float64
	BoundingBox geo.BoundingBox

	// CountryHint is the winning candidate's country code, lower-cased,
	// or the previous hint when the candidate carried none.
	CountryHint string

	DisplayName string
}

// Query describes one provider search.
type Query struct {
	Text string

	// Viewport restricts the search to the visible map area when
	// non-nil.
	Viewport *geo.BoundingBox

	Limit int

	// Languages is the response language preference, most preferred
	// first.
	Languages []string
}

// Provider is an external geocoding service.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Candidate, error)
	Name() string
}
