package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/tripgenie/internal/config"
	"github.com/dgallion1/tripgenie/internal/generate"
	"github.com/dgallion1/tripgenie/internal/pipeline"
	"github.com/dgallion1/tripgenie/internal/store"
)

// PlanStore is the read and delete side of plan persistence.
type PlanStore interface {
	Get(ctx context.Context, id string) (*store.Plan, error)
	List(ctx context.Context, limit int) ([]*store.Plan, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Server is the HTTP API server for tripgenie.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	plans        PlanStore
	stats        *generate.LLMStats
	gatherer     prometheus.Gatherer
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats and gatherer may
// be nil.
func NewServer(orch *pipeline.Orchestrator, plans PlanStore, stats *generate.LLMStats, gatherer prometheus.Gatherer, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		plans:        plans,
		stats:        stats,
		gatherer:     gatherer,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/plans", s.handleCreatePlan)
		r.Get("/api/plans", s.handleListPlans)
		r.Get("/api/plans/{planID}", s.handleGetPlan)
		r.Delete("/api/plans/{planID}", s.handleDeletePlan)
		r.Get("/api/plans/{planID}/status", s.handlePlanStatus)
		r.Get("/api/plans/{planID}/export", s.handleExportPlan)

		r.Post("/api/segment", s.handleSegment)
		r.Post("/api/segment/batch", s.handleBatchSegment)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
