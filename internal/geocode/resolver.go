package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
)

const (
	localResultLimit  = 5
	globalResultLimit = 8

	// maxCandidateBoxArea is the largest candidate bounding box (in
	// square degrees) still treated as a place rather than a whole
	// country.
	maxCandidateBoxArea = 1.0

	// fallbackRadiusKm is the synthetic box radius used when a candidate
	// has no usable bounding box.
	fallbackRadiusKm = 3.0
)

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	// Provider is the external geocoding service.
	Provider Provider

	// Logger for resolution operations.
	Logger zerolog.Logger

	// Language is the preferred response language. English is always
	// the fallback; defaults to "en".
	Language string
}

// Resolver turns place-name strings into resolved locations.
type Resolver struct {
	provider  Provider
	logger    zerolog.Logger
	languages []string
}

// NewResolver creates a new place resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	languages := []string{"en"}
	if cfg.Language != "" && cfg.Language != "en" {
		languages = []string{cfg.Language, "en"}
	}

	return &Resolver{
		provider:  cfg.Provider,
		logger:    cfg.Logger,
		languages: languages,
	}
}

// Resolve turns a place name into a best-guess point and region.
//
// When a viewport is supplied the first query is scoped to it, so a
// name like "Florentin" resolves to the neighbourhood on screen rather
// than a same-named village elsewhere. If the scoped query yields
// nothing usable, a second unbounded query is tried. countryHint biases
// ranking toward the country of the previous successful resolution and
// is carried forward on the result.
func (r *Resolver) Resolve(ctx context.Context, name string, viewport *geo.BoundingBox, countryHint string) (*ResolvedLocation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyQuery
	}

	var (
		winner Candidate
		found  bool
	)

	if viewport != nil {
		candidates, err := r.provider.Search(ctx, Query{
			Text:      name,
			Viewport:  viewport,
			Limit:     localResultLimit,
			Languages: r.languages,
		})
		if err != nil {
			// A failed local query just forfeits the viewport scoping.
			r.logger.Warn().Err(err).Str("place", name).Msg("viewport-scoped geocode query failed")
		} else {
			winner, found = Rank(candidates, countryHint)
		}
	}

	if !found {
		candidates, err := r.provider.Search(ctx, Query{
			Text:      name,
			Limit:     globalResultLimit,
			Languages: r.languages,
		})
		if err != nil {
			return nil, fmt.Errorf("global geocode query: %w", err)
		}
		winner, found = Rank(candidates, countryHint)
	}

	if !found {
		return nil, ErrNoLocationFound
	}

	resolved := &ResolvedLocation{
		Lat:         winner.Lat,
		Lon:         winner.Lon,
		CountryHint: countryHint,
		DisplayName: winner.DisplayName,
	}

	// A candidate box larger than maxCandidateBoxArea is an entire
	// country; querying it would drown the map. Substitute a tight
	// synthetic box around the point instead.
	if winner.BoundingBox != nil && winner.BoundingBox.Valid() && winner.BoundingBox.Area() <= maxCandidateBoxArea {
		resolved.BoundingBox = *winner.BoundingBox
	} else {
		resolved.BoundingBox = geo.RadiusBox(winner.Lat, winner.Lon, fallbackRadiusKm)
	}

	if winner.CountryCode != "" {
		resolved.CountryHint = strings.ToLower(winner.CountryCode)
	}

	r.logger.Debug().
		Str("place", name).
		Float64("lat", resolved.Lat).
		Float64("lon", resolved.Lon).
		Str("type", winner.Type).
		Str("country_hint", resolved.CountryHint).
		Str("provider", r.provider.Name()).
		Msg("place resolved")

	return resolved, nil
}
