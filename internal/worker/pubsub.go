package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	warmupJob        *WarmupJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	WarmupJob        *WarmupJob
	Logger           zerolog.Logger
}

// JobMessage represents a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Places overrides the configured warmup targets for this run.
	Places []string `json:"places,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 2
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		warmupJob:        cfg.WarmupJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Data, &jobMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch jobMsg.JobType {
	case "cache_warmup":
		err = h.handleCacheWarmup(ctx, jobMsg)
	case "health_check":
		err = h.handleHealthCheck(ctx)
	default:
		logger.Warn().Str("job_type", jobMsg.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", jobMsg.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleCacheWarmup(ctx context.Context, msg JobMessage) error {
	job := h.warmupJob
	if len(msg.Places) > 0 {
		job = h.jobForPlaces(msg.Places)
	}

	h.logger.Info().
		Int("targets", job.config.TotalTargets()).
		Msg("starting cache warmup")

	result := job.Run(ctx)

	h.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("total_targets", result.TotalTargets).
		Msg("cache warmup completed")

	// Consider it successful if more than half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many warmup failures: %d/%d", result.Failed, result.TotalTargets)
	}

	return nil
}

// jobForPlaces builds a one-off job warming the named places instead of
// the configured targets. Centers are unknown, so network warmup is off.
func (h *PubSubHandler) jobForPlaces(places []string) *WarmupJob {
	config := h.warmupJob.config
	config.Targets = nil
	config.WarmNetworks = false
	for i, place := range places {
		config.Targets = append(config.Targets, WarmupTarget{
			Name:     place,
			Priority: i + 1,
		})
	}

	return NewWarmupJob(WarmupJobConfig{
		Config:         config,
		Logger:         h.logger,
		PredictService: h.warmupJob.predictService,
	})
}

func (h *PubSubHandler) handleHealthCheck(ctx context.Context) error {
	h.logger.Debug().Msg("running health check")

	// Warm a single place to verify model server connectivity.
	config := WarmupConfig{
		Targets: []WarmupTarget{
			{
				Name:     "Tel Aviv, Israel",
				Priority: 1,
				Center:   Point{Lat: 32.0853, Lon: 34.7818},
			},
		},
		Concurrency:     1,
		Timeout:         30 * time.Second,
		WarmPredictions: true,
		WarmNetworks:    false,
	}

	healthCheckJob := NewWarmupJob(WarmupJobConfig{
		Config:         config,
		Logger:         h.logger,
		PredictService: h.warmupJob.predictService,
	})

	result := healthCheckJob.Run(ctx)

	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}

	h.logger.Debug().Msg("health check passed")
	return nil
}
