// Package api provides the HTTP API for the pedestrian volume service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/NoamTeshuva/pedestrian-web/internal/api/handler"
	"github.com/NoamTeshuva/pedestrian-web/internal/api/middleware"
	"github.com/NoamTeshuva/pedestrian-web/internal/auth"
	"github.com/NoamTeshuva/pedestrian-web/internal/history"
	"github.com/NoamTeshuva/pedestrian-web/internal/network"
	"github.com/NoamTeshuva/pedestrian-web/internal/predict"
	"github.com/NoamTeshuva/pedestrian-web/internal/provider/resilience"
	"github.com/NoamTeshuva/pedestrian-web/internal/search"
)

// RouterConfig holds the dependencies of the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	AuthService    *auth.Service
	SearchManager  *search.Manager
	PredictService *predict.Service
	Simulator      handler.Simulator
	NetworkService *network.Service
	Resolver       handler.PlaceResolver
	HistoryRepo    history.Repository
	Database       handler.Pinger
	Registry       *resilience.Registry
}

// NewRouter creates a chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "pedestrian-web-api"
	}

	// Global middleware, order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS)
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Database:  cfg.Database,
		Registry:  cfg.Registry,
	})
	searchHandler := handler.NewSearchHandler(cfg.SearchManager)
	predictHandler := handler.NewPredictHandler(cfg.PredictService, cfg.Simulator)
	networkHandler := handler.NewNetworkHandler(cfg.NetworkService, cfg.Resolver)
	metadataHandler := handler.NewMetadataHandler()
	adminHandler := handler.NewAdminHandler(cfg.HistoryRepo, cfg.PredictService)

	authMiddleware := middleware.Auth(cfg.AuthService)
	requireAdmin := middleware.RequireRole(auth.RoleAdmin)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	adminRateLimit := middleware.RateLimitBySubject(middleware.AdminRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public except status).
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Metadata (public).
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/enums", metadataHandler.GetEnums)
		})

		// The expensive endpoints fan out to the model server, the
		// geocoder, or Overpass.
		r.Group(func(r chi.Router) {
			r.Use(expensiveRateLimit)
			r.Get("/search", searchHandler.Search)
			r.Get("/predict", predictHandler.Predict)
			r.Get("/base-network", networkHandler.BaseNetwork)
			r.Post("/simulate", predictHandler.Simulate)
		})

		// Admin endpoints (token with admin role).
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(requireAdmin)
			r.Use(adminRateLimit)
			r.Get("/history", adminHandler.ListHistory)
			r.Get("/cache/stats", adminHandler.CacheStats)
			r.Post("/cache/invalidate", adminHandler.InvalidateCache)
		})
	})

	return r
}
