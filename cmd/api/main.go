// Package main provides the entrypoint for the pedestrian volume API
// server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/api"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/middleware"
	"github.com/NoamTeshuva/pedestrian-web/internal/auth"
	"github.com/NoamTeshuva/pedestrian-web/internal/database"
	"github.com/NoamTeshuva/pedestrian-web/internal/geocode"
	"github.com/NoamTeshuva/pedestrian-web/internal/geocode/nominatim"
	"github.com/NoamTeshuva/pedestrian-web/internal/history"
	"github.com/NoamTeshuva/pedestrian-web/internal/network"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict/modelserver"
	"github.com/NoamTeshuva/pedestrian-web/internal/provider/resilience"
	"github.com/NoamTeshuva/pedestrian-web/internal/search"
	"github.com/NoamTeshuva/pedestrian-web/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pedestrian-web-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting pedestrian volume API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"
	sampleRatio, _ := strconv.ParseFloat(os.Getenv("OTEL_TRACE_SAMPLE_RATIO"), 64)

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
		SampleRatio:    sampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database when configured. The service runs without one;
	// search history then lives in memory and is lost on restart.
	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
	}

	var historyRepo history.Repository = history.NewInMemoryRepository()
	if os.Getenv("DB_HOST") != "" {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		historyRepo = history.NewPostgresRepository(pool)
		routerCfg.Database = pool
	} else {
		log.Warn().Msg("no database configured - search history is in-memory only")
	}
	routerCfg.HistoryRepo = historyRepo

	// Upstream clients share a registry so the status endpoint can
	// report per-upstream circuit health.
	registry := resilience.NewRegistry()

	geocodeHTTP := resilience.NewClient(resilience.DefaultClientConfig(nominatim.ProviderName))
	registry.Register(nominatim.ProviderName, geocodeHTTP)

	modelHTTP := resilience.NewClient(resilience.DefaultClientConfig(modelserver.ProviderName))
	registry.Register(modelserver.ProviderName, modelHTTP)
	routerCfg.Registry = registry

	// Geocoding
	geocodeClient := nominatim.NewClient(nominatim.ClientConfig{
		BaseURL:    os.Getenv("NOMINATIM_BASE_URL"),
		HTTPClient: geocodeHTTP,
		Logger:     log,
	})
	resolver := geocode.NewResolver(geocode.ResolverConfig{
		Provider: geocodeClient,
		Logger:   log,
		Language: os.Getenv("GEOCODE_LANGUAGE"),
	})
	routerCfg.Resolver = resolver
	log.Info().Msg("geocoding resolver initialized")

	// Predictions
	modelClient := modelserver.NewClient(modelserver.ClientConfig{
		BaseURL:    os.Getenv("MODEL_SERVER_URL"),
		HTTPClient: modelHTTP,
		Logger:     log,
	})
	predictService := predict.NewService(predict.ServiceConfig{
		Provider: modelClient,
		Logger:   log,
	})
	routerCfg.PredictService = predictService
	routerCfg.Simulator = modelClient
	log.Info().Str("provider", modelClient.Name()).Msg("prediction service initialized")

	// Street networks
	networkService := network.NewService(network.ServiceConfig{
		Endpoint: os.Getenv("OVERPASS_ENDPOINT"),
		Logger:   log,
	})
	routerCfg.NetworkService = networkService

	// Per-session search controllers
	searchManager := search.NewManager(search.ManagerConfig{
		Resolver:  resolver,
		Predictor: predictService,
		History:   historyRepo,
		Logger:    log,
	})
	routerCfg.SearchManager = searchManager
	log.Info().Msg("search manager initialized")

	// Service tokens for the admin surface
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	routerCfg.AuthService = auth.NewService(auth.Config{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.pedestrian-web.dev",
		Audience:   "pedestrian-web-api",
	})

	// Create router with configuration
	router := api.NewRouter(routerCfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
