package api

import (
	"buyer-intent-engine/internal/api/handlers"
	"buyer-intent-engine/internal/api/middleware"
	"buyer-intent-engine/internal/config"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/repository"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ScoreService interface {
	handlers.ScoreReader
	handlers.BatchScorer
}

type MarketService interface {
	handlers.MarketReader
	handlers.ScarcityRecorder
}

// Dependencies are the engine services exposed over HTTP.
type Dependencies struct {
	Events      handlers.EventLogger
	Scores      ScoreService
	Preferences handlers.PreferenceExtractor
	Feed        handlers.FeedProvider
	Market      MarketService
	Triggers    repository.TriggerHistoryRepository
	Engagements repository.EngagementRepository
}

// Server is the HTTP adapter in front of the intent engine.
type Server struct {
	config     *config.Config
	log        *logger.Logger
	httpServer *http.Server
	router     *mux.Router

	rateLimiter *middleware.RateLimiter

	healthHandler *handlers.HealthHandler
	buyerHandler  *handlers.BuyerHandler
	agentHandler  *handlers.AgentHandler
	marketHandler *handlers.MarketHandler
	jobsHandler   *handlers.JobsHandler
}

func NewServer(cfg *config.Config, log *logger.Logger, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		log:    log,
	}

	s.rateLimiter = middleware.NewRateLimiter(cfg.App.RateLimit)

	s.healthHandler = handlers.NewHealthHandler()
	s.buyerHandler = handlers.NewBuyerHandler(deps.Events, deps.Scores, deps.Preferences)
	s.agentHandler = handlers.NewAgentHandler(deps.Feed, deps.Triggers, deps.Engagements)
	s.marketHandler = handlers.NewMarketHandler(deps.Market)
	s.jobsHandler = handlers.NewJobsHandler(deps.Scores, deps.Market)

	s.setupRouter()

	return s
}

func (s *Server) setupRouter() {
	r := mux.NewRouter()

	r.Use(middleware.LoggingMiddleware(s.log))
	r.Use(middleware.RecoveryMiddleware(s.log))
	r.Use(middleware.CORSMiddleware(s.config.App.AllowedOrigins))

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthHandler.Health).Methods("GET")
	api.HandleFunc("/ping", s.healthHandler.Ping).Methods("GET")

	limit := func(h http.HandlerFunc) http.Handler {
		return s.rateLimiter.RateLimitMiddleware(h)
	}

	// Buyers
	api.Handle("/buyers/{id:[0-9]+}/events", limit(s.buyerHandler.LogEvent)).Methods("POST")
	api.Handle("/buyers/{id:[0-9]+}/intent-score", limit(s.buyerHandler.GetIntentScore)).Methods("GET")
	api.Handle("/buyers/{id:[0-9]+}/preferences", limit(s.buyerHandler.GetPreferences)).Methods("GET")

	// Agents
	api.Handle("/agents/{id:[0-9]+}/feed", limit(s.agentHandler.GetFeed)).Methods("GET")
	api.Handle("/agents/{id:[0-9]+}/engagements", limit(s.agentHandler.RecordEngagement)).Methods("POST")
	api.Handle("/agents/{id:[0-9]+}/buyers/{buyer_id:[0-9]+}/triggers", limit(s.agentHandler.ListTriggers)).Methods("GET")

	// Market
	api.Handle("/zones/{id:[0-9]+}/market-signals", limit(s.marketHandler.GetZoneSignals)).Methods("GET")
	api.Handle("/market-signals", limit(s.marketHandler.ListSignals)).Methods("GET")

	// Batch jobs
	api.Handle("/jobs/decay", limit(s.jobsHandler.Decay)).Methods("POST")
	api.Handle("/jobs/snapshots", limit(s.jobsHandler.Snapshots)).Methods("POST")
	api.Handle("/jobs/scarcity", limit(s.jobsHandler.Scarcity)).Methods("POST")

	s.router = r
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.App.Host, s.config.App.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("🚀 Intent engine API listening on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.log.Info("🛑 Shutting down API server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("✅ API server stopped")
	return nil
}

// Router exposes the router for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
