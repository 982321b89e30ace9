package predict

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the prediction service.
type ServiceConfig struct {
	// Provider is the prediction backend.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache prediction results (default: 10
	// minutes). The street network and the model are static on that
	// timescale.
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees for
	// bbox-scoped requests (default: 0.005, ~550m). Boxes whose corners
	// fall in the same cells share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on backend errors
	// (default: 30 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries
	// (default: 5 minutes).
	CleanupInterval time.Duration
}

// Service provides predictions with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	cache       map[string]*cachedResult
	lastCleanup time.Time
}

type cachedResult struct {
	result    *Result
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new prediction service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.005
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedResult),
	}
}

// Predict returns predictions for the request, from cache when fresh.
func (s *Service) Predict(ctx context.Context, req Request) (*Result, error) {
	if req.Place == "" && req.BBox == nil {
		return nil, ErrMissingScope
	}

	cacheKey := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().Str("cache_key", cacheKey).Msg("cache hit for prediction")
		return cached.result, nil
	}
	s.mu.RUnlock()

	return s.fetch(ctx, req, cacheKey)
}

// fetch fetches a prediction from the backend and updates the cache.
func (s *Service) fetch(ctx context.Context, req Request, cacheKey string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd).
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		return cached.result, nil
	}

	s.logger.Debug().
		Str("place", req.Place).
		Str("cache_key", cacheKey).
		Str("provider", s.provider.Name()).
		Msg("fetching prediction from model server")

	result, err := s.provider.Predict(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("place", req.Place).
			Str("cache_key", cacheKey).
			Msg("failed to fetch prediction")

		// Stale-if-error: an outdated prediction beats an empty map.
		if cached, ok := s.cache[cacheKey]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale prediction due to model server error")
				return cached.result, nil
			}
		}

		return nil, err
	}

	now := time.Now()
	s.cache[cacheKey] = &cachedResult{
		result:    result,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.cleanupIfNeeded()

	return result, nil
}

// cacheKey builds a cache key from the request scope and its temporal
// parameters. Bbox corners are grid-quantized so near-identical boxes
// share entries.
func (s *Service) cacheKey(req Request) string {
	params := fmt.Sprintf("%s:%s:%s:%d", req.Season, req.WeekType, req.TimeOfDay, req.Hour)

	if req.BBox != nil {
		b := req.BBox
		quantize := func(v float64) float64 {
			return math.Floor(v/s.cacheGridSize) * s.cacheGridSize
		}
		return fmt.Sprintf("bbox:%.3f,%.3f,%.3f,%.3f:%s",
			quantize(b.West), quantize(b.South), quantize(b.East), quantize(b.North), params)
	}

	return "place:" + strings.ToLower(strings.TrimSpace(req.Place)) + ":" + params
}

// cleanupIfNeeded removes entries past the stale-if-error window.
// Caller must hold the write lock.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("cleaned up expired prediction cache entries")
	}
}

// InvalidateCache clears all cached predictions.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedResult)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// Stats returns cache statistics.
func (s *Service) Stats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
