package predict_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
)

type stubProvider struct {
	calls   int
	results []*predict.Result
	err     error
}

func (s *stubProvider) Predict(_ context.Context, _ predict.Request) (*predict.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r, nil
}

func (s *stubProvider) Name() string { return "stub" }

func result(edges int) *predict.Result {
	return &predict.Result{
		Success:      true,
		NetworkStats: &predict.NetworkStats{NEdges: edges},
		GeoJSON:      &predict.FeatureCollection{Type: "FeatureCollection"},
	}
}

func TestService_Predict_CachesByPlace(t *testing.T) {
	provider := &stubProvider{results: []*predict.Result{result(100)}}
	service := predict.NewService(predict.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: time.Minute,
	})

	req := predict.Request{Place: "Monaco", Season: "summer"}

	first, err := service.Predict(context.Background(), req)
	require.NoError(t, err)
	second, err := service.Predict(context.Background(), req)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, provider.calls)
}

func TestService_Predict_PlaceKeyNormalized(t *testing.T) {
	provider := &stubProvider{results: []*predict.Result{result(100)}}
	service := predict.NewService(predict.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.Predict(context.Background(), predict.Request{Place: "Monaco"})
	require.NoError(t, err)
	_, err = service.Predict(context.Background(), predict.Request{Place: "  monaco "})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
}

func TestService_Predict_ParamsSeparateEntries(t *testing.T) {
	provider := &stubProvider{results: []*predict.Result{result(100), result(40)}}
	service := predict.NewService(predict.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	morning, err := service.Predict(context.Background(), predict.Request{Place: "Monaco", TimeOfDay: "morning"})
	require.NoError(t, err)
	night, err := service.Predict(context.Background(), predict.Request{Place: "Monaco", TimeOfDay: "night"})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, 100, morning.SegmentCount())
	assert.Equal(t, 40, night.SegmentCount())
}

func TestService_Predict_BBoxGridSharing(t *testing.T) {
	provider := &stubProvider{results: []*predict.Result{result(100)}}
	service := predict.NewService(predict.ServiceConfig{
		Provider:      provider,
		Logger:        zerolog.Nop(),
		CacheGridSize: 0.01,
	})

	a := &geo.BoundingBox{West: 7.4201, South: 43.7301, East: 7.4401, North: 43.7501}
	b := &geo.BoundingBox{West: 7.4205, South: 43.7305, East: 7.4405, North: 43.7505}

	_, err := service.Predict(context.Background(), predict.Request{BBox: a})
	require.NoError(t, err)
	_, err = service.Predict(context.Background(), predict.Request{BBox: b})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls, "boxes in the same grid cells share a cache entry")
}

func TestService_Predict_StaleIfError(t *testing.T) {
	provider := &stubProvider{results: []*predict.Result{result(100)}}
	service := predict.NewService(predict.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        time.Nanosecond, // expire immediately
		StaleIfErrorTTL: time.Hour,
	})

	req := predict.Request{Place: "Monaco"}
	fresh, err := service.Predict(context.Background(), req)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	provider.err = errors.New("model server down")

	stale, err := service.Predict(context.Background(), req)
	require.NoError(t, err, "stale result should be served on backend error")
	assert.Same(t, fresh, stale)
}

func TestService_Predict_ErrorWithoutCache(t *testing.T) {
	provider := &stubProvider{err: errors.New("model server down")}
	service := predict.NewService(predict.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.Predict(context.Background(), predict.Request{Place: "Monaco"})
	require.Error(t, err)
}

func TestService_Predict_MissingScope(t *testing.T) {
	service := predict.NewService(predict.ServiceConfig{Provider: &stubProvider{}, Logger: zerolog.Nop()})

	_, err := service.Predict(context.Background(), predict.Request{})
	assert.ErrorIs(t, err, predict.ErrMissingScope)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &stubProvider{results: []*predict.Result{result(100)}}
	service := predict.NewService(predict.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	req := predict.Request{Place: "Monaco"}
	_, err := service.Predict(context.Background(), req)
	require.NoError(t, err)

	service.InvalidateCache()

	_, err = service.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestService_Stats(t *testing.T) {
	provider := &stubProvider{results: []*predict.Result{result(100)}}
	service := predict.NewService(predict.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.Predict(context.Background(), predict.Request{Place: "Monaco"})
	require.NoError(t, err)

	stats := service.Stats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, "stub", stats.Provider)
}
