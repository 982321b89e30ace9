package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/network"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/search"
)

// WarmupJob pre-populates the prediction cache for the configured
// targets so the first user search of a popular place is a cache hit.
type WarmupJob struct {
	config WarmupConfig
	logger zerolog.Logger

	// Services (optional, nil if not configured)
	predictService *predict.Service
	networkService *network.Service

	metrics *WarmupMetrics
}

// WarmupMetrics tracks warmup job statistics.
type WarmupMetrics struct {
	mu sync.RWMutex

	TotalRuns         int64
	SuccessfulWarmups int64
	FailedWarmups     int64
	PredictionsWarmed int64
	NetworksWarmed    int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmupJobConfig holds configuration for creating a WarmupJob.
type WarmupJobConfig struct {
	Config         WarmupConfig
	Logger         zerolog.Logger
	PredictService *predict.Service
	NetworkService *network.Service
}

// NewWarmupJob creates a new warmup job processor.
func NewWarmupJob(cfg WarmupJobConfig) *WarmupJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultWarmupConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &WarmupJob{
		config:         config,
		logger:         cfg.Logger,
		predictService: cfg.PredictService,
		networkService: cfg.NetworkService,
		metrics:        &WarmupMetrics{},
	}
}

// WarmupResult contains the result of a warmup run.
type WarmupResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	Errors       []WarmupError
}

// WarmupError represents an error while warming one target.
type WarmupError struct {
	Target string
	Stage  string
	Error  string
}

// Run executes the warmup job for all configured targets.
func (j *WarmupJob) Run(ctx context.Context) *WarmupResult {
	startTime := time.Now()
	result := &WarmupResult{
		StartTime:    startTime,
		TotalTargets: j.config.TotalTargets(),
	}

	j.logger.Info().
		Int("total_targets", result.TotalTargets).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warmup job")

	targetsChan := make(chan WarmupTarget, len(j.config.Targets))
	resultsChan := make(chan targetResult, len(j.config.Targets))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmupWorker(ctx, targetsChan, resultsChan)
		}()
	}

	for _, t := range j.config.Targets {
		targetsChan <- t
	}
	close(targetsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		if tr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, tr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("cache warmup job completed")

	return result
}

type targetResult struct {
	target  WarmupTarget
	success bool
	errors  []WarmupError
}

func (j *WarmupJob) warmupWorker(ctx context.Context, targets <-chan WarmupTarget, results chan<- targetResult) {
	for target := range targets {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warmTarget(ctx, target)
		}
	}
}

func (j *WarmupJob) warmTarget(ctx context.Context, target WarmupTarget) targetResult {
	result := targetResult{
		target:  target,
		success: true,
	}

	targetCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.config.WarmPredictions && j.predictService != nil {
		if err := j.warmPrediction(targetCtx, target); err != nil {
			result.errors = append(result.errors, WarmupError{
				Target: target.Name,
				Stage:  "predict",
				Error:  err.Error(),
			})
			result.success = false
		} else {
			atomic.AddInt64(&j.metrics.PredictionsWarmed, 1)
		}
	}

	if j.config.WarmNetworks && j.networkService != nil {
		if err := j.warmNetwork(targetCtx, target); err != nil {
			result.errors = append(result.errors, WarmupError{
				Target: target.Name,
				Stage:  "network",
				Error:  err.Error(),
			})
			result.success = false
		} else {
			atomic.AddInt64(&j.metrics.NetworksWarmed, 1)
		}
	}

	return result
}

// warmPrediction runs one prediction for the current default parameters.
// The service caches the result, so the next user search for the place
// with the same parameters is served from cache.
func (j *WarmupJob) warmPrediction(ctx context.Context, target WarmupTarget) error {
	now := time.Now()
	params := search.DefaultParameters(now)

	req := predict.Request{
		Place:     target.Name,
		Season:    string(params.Season),
		WeekType:  string(params.WeekType),
		TimeOfDay: string(params.TimeOfDay),
		Date:      params.RequestTime(now),
		Hour:      params.RepresentativeHour(),
	}

	_, err := j.predictService.Predict(ctx, req)
	return err
}

func (j *WarmupJob) warmNetwork(ctx context.Context, target WarmupTarget) error {
	box := j.config.NetworkBox(target)
	_, err := j.networkService.WalkNetwork(ctx, box)
	return err
}

func (j *WarmupJob) updateMetrics(result *WarmupResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulWarmups += int64(result.Successful)
	j.metrics.FailedWarmups += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmupJob) GetMetrics() WarmupMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmupMetrics{
		TotalRuns:         j.metrics.TotalRuns,
		SuccessfulWarmups: j.metrics.SuccessfulWarmups,
		FailedWarmups:     j.metrics.FailedWarmups,
		PredictionsWarmed: j.metrics.PredictionsWarmed,
		NetworksWarmed:    j.metrics.NetworksWarmed,
		LastRunAt:         j.metrics.LastRunAt,
		LastRunDuration:   j.metrics.LastRunDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmupJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":         m.TotalRuns,
		"successful_warmups": m.SuccessfulWarmups,
		"failed_warmups":     m.FailedWarmups,
		"predictions_warmed": m.PredictionsWarmed,
		"networks_warmed":    m.NetworksWarmed,
		"last_run_at":        m.LastRunAt,
		"last_run_duration":  m.LastRunDuration.String(),
		"total_duration":     m.TotalDuration.String(),
	}
}
