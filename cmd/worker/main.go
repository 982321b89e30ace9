// Package main provides the entrypoint for the background worker. The
// worker keeps the prediction cache warm for popular places, driven by
// Pub/Sub job messages.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/network"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict/modelserver"
	"github.com/NoamTeshuva/pedestrian-web/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pedestrian-web-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting pedestrian volume worker")

	// Worker also exposes a health endpoint for Cloud Run.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Upstream services the warmup job drives.
	modelClient := modelserver.NewClient(modelserver.ClientConfig{
		BaseURL: os.Getenv("MODEL_SERVER_URL"),
		Logger:  log,
	})
	predictService := predict.NewService(predict.ServiceConfig{
		Provider: modelClient,
		Logger:   log,
	})
	networkService := network.NewService(network.ServiceConfig{
		Endpoint: os.Getenv("OVERPASS_ENDPOINT"),
		Logger:   log,
	})

	warmupConfig := worker.DefaultWarmupConfig()
	if os.Getenv("WARM_NETWORKS") == "true" {
		warmupConfig.WarmNetworks = true
	}

	warmupJob := worker.NewWarmupJob(worker.WarmupJobConfig{
		Config:         warmupConfig,
		Logger:         log,
		PredictService: predictService,
		NetworkService: networkService,
	})

	// Pub/Sub subscription for job messages.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription == "" {
		subscription = "pedestrian-web-jobs"
	}

	var pubsubHandler *worker.PubSubHandler
	if projectID != "" {
		var err error
		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			WarmupJob:        warmupJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer pubsubHandler.Close() //nolint:errcheck // best effort cleanup

		go func() {
			if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Fatal().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		// Without Pub/Sub, warm on a fixed schedule instead.
		log.Warn().Msg("no PUBSUB_PROJECT_ID configured - running scheduled warmup only")

		go func() {
			ticker := time.NewTicker(15 * time.Minute)
			defer ticker.Stop()

			warmupJob.Run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					warmupJob.Run(ctx)
				}
			}
		}()
	}

	// Health check server.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
