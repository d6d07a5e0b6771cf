// Package api exposes the HTTP surface: webhook ingest, contact upserts,
// health, and metrics.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/voxlog/voxlog/internal/api/middleware"
	"github.com/voxlog/voxlog/internal/config"
	"github.com/voxlog/voxlog/internal/database"
	"github.com/voxlog/voxlog/internal/ingest"
)

// maxBodyBytes caps inbound webhook bodies. Platform payloads with full
// artifacts run to a few hundred KB; 5 MB leaves generous headroom.
const maxBodyBytes = 5 << 20

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router    *chi.Mux
	store     database.Store
	processor *ingest.Processor
	cfg       *config.Config
	limiter   *middleware.IPRateLimiter
}

// NewServer creates the HTTP handler with all routes mounted. metricsHandler
// serves GET /metrics; pass nil to leave the route unmounted.
func NewServer(store database.Store, processor *ingest.Processor, cfg *config.Config, metricsHandler http.Handler) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     store,
		processor: processor,
		cfg:       cfg,
		limiter:   middleware.NewIPRateLimiter(middleware.NewRateLimitConfig(cfg.RateLimitRPS, cfg.RateLimitBurst)),
	}

	s.routes(metricsHandler)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the rate limiter's background cleanup.
func (s *Server) Close() {
	s.limiter.Stop()
}

// routes configures the middleware stack and mounts all routes.
func (s *Server) routes(metricsHandler http.Handler) {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS(middleware.ParseCORSOrigins(s.cfg.CORSOrigins)))

	// Unauthenticated routes.
	r.Get("/health", s.handleHealth)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Ingest routes: bearer auth plus per-IP rate limiting.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter))
		r.Use(middleware.RequireBearer(s.cfg.WebhookSecret))

		r.Post("/submit_call", s.handleSubmitCall)
		r.Post("/contacts", s.handleUpsertContact)
	})

	slog.Info("api routes mounted")
}

// handleHealth reports liveness. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
