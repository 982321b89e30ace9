// Package search orchestrates a place search end to end: geocode the place,
// run a prediction, and widen the query area when the returned walk network
// is too sparse to be useful.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/geocode"
	"github.com/NoamTeshuva/pedestrian-web/internal/history"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
)

var (
	// ErrSearchInProgress is returned when a search is started while a
	// previous one on the same controller has not finished.
	ErrSearchInProgress = errors.New("search already in progress")

	// ErrUpstreamUnavailable indicates the initial prediction could not be
	// obtained at all.
	ErrUpstreamUnavailable = errors.New("prediction backend unavailable")

	// ErrEmptyPlace is returned for a blank place name.
	ErrEmptyPlace = errors.New("place must not be empty")
)

const (
	// minEffectiveSegments is the segment count below which the result is
	// considered too sparse and the area is widened.
	minEffectiveSegments = 50

	// Widening radii, applied in order around the resolved point.
	firstWideningKm  = 3.0
	secondWideningKm = 5.0
)

// Widening notices surfaced to the caller.
const (
	noticeWidened3km = "Search area was too small, expanded to 3 km around the location."
	noticeWidened5km = "Expanded to 5 km around the location."
)

// Predictor is the prediction dependency of the controller. Satisfied by
// *predict.Service.
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) (*predict.Result, error)
}

// Resolver is the geocoding dependency of the controller. Satisfied by
// *geocode.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, name string, viewport *geo.BoundingBox, countryHint string) (*geocode.ResolvedLocation, error)
}

// Request describes one search.
type Request struct {
	Place      string
	Viewport   *geo.BoundingBox
	Parameters Parameters
}

// Notice is a non-fatal message about how the search was carried out.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Result is the outcome of a completed search.
type Result struct {
	Prediction *predict.Result           `json:"prediction"`
	Resolved   *geocode.ResolvedLocation `json:"resolved,omitempty"`
	WidenedKm  float64                   `json:"widenedKm,omitempty"`
	Notices    []Notice                  `json:"notices,omitempty"`
	Duration   time.Duration             `json:"-"`
}

// ControllerConfig carries the dependencies of a Controller.
type ControllerConfig struct {
	Resolver  Resolver
	Predictor Predictor
	History   history.Repository
	Logger    zerolog.Logger

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Controller runs searches one at a time and carries the country hint from
// one search to the next. One controller serves one client session.
type Controller struct {
	resolver  Resolver
	predictor Predictor
	history   history.Repository
	logger    zerolog.Logger
	clock     func() time.Time

	busy atomic.Bool

	mu          sync.Mutex
	countryHint string
	lastUsed    time.Time
}

// NewController creates a search controller.
func NewController(cfg ControllerConfig) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		resolver:  cfg.Resolver,
		predictor: cfg.Predictor,
		history:   cfg.History,
		logger:    cfg.Logger.With().Str("component", "search").Logger(),
		clock:     clock,
		lastUsed:  clock(),
	}
}

// Search geocodes the place, requests a prediction, and widens the area up
// to twice when the result is too sparse. A widening attempt that fails is
// dropped silently; only the initial prediction failure is fatal.
func (c *Controller) Search(ctx context.Context, req Request) (*Result, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrSearchInProgress
	}
	defer c.busy.Store(false)

	start := c.clock()
	c.mu.Lock()
	c.lastUsed = start
	c.mu.Unlock()

	place := req.Place
	if place == "" {
		return nil, ErrEmptyPlace
	}

	result := &Result{}
	log := c.logger.With().Str("place", place).Logger()

	resolved := c.resolve(ctx, place, req.Viewport, result, log)

	predictReq := c.predictRequest(place, req.Parameters)
	prediction, err := c.predictor.Predict(ctx, predictReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	result.Prediction = prediction
	result.Resolved = resolved

	if resolved != nil {
		c.widen(ctx, resolved, req.Parameters, result, log)
	}

	result.Duration = c.clock().Sub(start)
	c.record(ctx, place, resolved, result)

	log.Info().
		Int("segments", result.Prediction.SegmentCount()).
		Float64("widened_km", result.WidenedKm).
		Dur("duration", result.Duration).
		Msg("search completed")

	return result, nil
}

// resolve geocodes the place. A geocoding failure is not fatal: the place
// name is handed to the prediction backend as-is and a warning is attached.
func (c *Controller) resolve(ctx context.Context, place string, viewport *geo.BoundingBox, result *Result, log zerolog.Logger) *geocode.ResolvedLocation {
	c.mu.Lock()
	hint := c.countryHint
	c.mu.Unlock()

	resolved, err := c.resolver.Resolve(ctx, place, viewport, hint)
	if err != nil {
		log.Warn().Err(err).Msg("geocoding failed, continuing with place name only")
		result.Notices = append(result.Notices, Notice{
			Level:   "warning",
			Message: "Location lookup failed, results may be less precise.",
		})
		return nil
	}

	c.mu.Lock()
	c.countryHint = resolved.CountryHint
	c.mu.Unlock()

	return resolved
}

// widen runs the progressive area expansion. The comparison chain is
// strictly pairwise: the 3 km response is judged against the initial one
// by raw feature count, and the 5 km response against the 3 km response's
// effective count, never against the overall best.
func (c *Controller) widen(ctx context.Context, resolved *geocode.ResolvedLocation, params Parameters, result *Result, log zerolog.Logger) {
	baseline := result.Prediction.SegmentCount()
	if baseline >= minEffectiveSegments {
		return
	}

	wide, err := c.predictAround(ctx, resolved, firstWideningKm, params)
	if err != nil {
		log.Warn().Err(err).Float64("radius_km", firstWideningKm).Msg("widened prediction failed")
	} else {
		if wide.FeatureCount() > result.Prediction.FeatureCount() {
			result.Prediction = wide
			result.WidenedKm = firstWideningKm
			result.Notices = append(result.Notices, Notice{Level: "info", Message: noticeWidened3km})
		}
		// The 3 km response's own count gates the 5 km attempt and is
		// its comparison baseline, whether or not it replaced the
		// current best.
		baseline = wide.SegmentCount()
	}

	if baseline >= minEffectiveSegments {
		return
	}

	wider, err := c.predictAround(ctx, resolved, secondWideningKm, params)
	if err != nil {
		log.Warn().Err(err).Float64("radius_km", secondWideningKm).Msg("widened prediction failed")
		return
	}
	if wider.SegmentCount() > baseline {
		result.Prediction = wider
		result.WidenedKm = secondWideningKm
		result.Notices = append(result.Notices, Notice{Level: "info", Message: noticeWidened5km})
	}
}

func (c *Controller) predictAround(ctx context.Context, resolved *geocode.ResolvedLocation, radiusKm float64, params Parameters) (*predict.Result, error) {
	box := geo.RadiusBox(resolved.Lat, resolved.Lon, radiusKm)
	req := predict.Request{
		BBox:      &box,
		Season:    string(params.Season),
		WeekType:  string(params.WeekType),
		TimeOfDay: string(params.TimeOfDay),
		Date:      params.RequestTime(c.clock()),
		Hour:      params.RepresentativeHour(),
	}
	return c.predictor.Predict(ctx, req)
}

// predictRequest builds the initial request. It is scoped by place name
// only; bounding boxes are reserved for the widening attempts.
func (c *Controller) predictRequest(place string, params Parameters) predict.Request {
	return predict.Request{
		Place:     place,
		Season:    string(params.Season),
		WeekType:  string(params.WeekType),
		TimeOfDay: string(params.TimeOfDay),
		Date:      params.RequestTime(c.clock()),
		Hour:      params.RepresentativeHour(),
	}
}

// record saves the search best-effort; a storage failure never fails the
// search itself.
func (c *Controller) record(ctx context.Context, place string, resolved *geocode.ResolvedLocation, result *Result) {
	if c.history == nil {
		return
	}

	rec := &history.Record{
		ID:           uuid.NewString(),
		Place:        place,
		SegmentCount: result.Prediction.SegmentCount(),
		WidenedKm:    result.WidenedKm,
		DurationMS:   result.Duration.Milliseconds(),
		CreatedAt:    c.clock(),
	}
	if resolved != nil {
		rec.Lat = resolved.Lat
		rec.Lon = resolved.Lon
		rec.CountryHint = resolved.CountryHint
	}

	if err := c.history.Save(ctx, rec); err != nil {
		c.logger.Warn().Err(err).Msg("failed to save search history")
	}
}

// CountryHint returns the hint carried over from the last successful
// geocoding, if any.
func (c *Controller) CountryHint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countryHint
}

// LastUsed reports when the controller last started a search.
func (c *Controller) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}
