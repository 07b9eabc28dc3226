package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campus-pulse/load-engine/internal/cache"
	"github.com/campus-pulse/load-engine/internal/config"
	"github.com/campus-pulse/load-engine/internal/events"
	"github.com/campus-pulse/load-engine/internal/health"
	"github.com/campus-pulse/load-engine/internal/storage"
	"github.com/campus-pulse/load-engine/internal/tips"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	repo           storage.Repository
	cache          *cache.LoadCache
	tips           *tips.Service
	bus            events.Source
	health         *health.Registry
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. The cache and event bus may be nil;
// load reads then skip caching and the event stream reports unavailable.
func NewServer(
	cfg config.ServerConfig,
	repo storage.Repository,
	loadCache *cache.LoadCache,
	tipService *tips.Service,
	bus events.Source,
	registry *health.Registry,
) *Server {
	s := &Server{
		config:         cfg,
		repo:           repo,
		cache:          loadCache,
		tips:           tipService,
		bus:            bus,
		health:         registry,
		authMiddleware: NewAuthMiddleware(repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		// Apply authentication middleware to all /api/v1/* routes
		r.Use(s.authMiddleware.Authenticate)

		// Student load
		r.Route("/students/{id}/load", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("load:read")).Get("/", s.handleStudentLoad)
			r.With(s.authMiddleware.RequirePermission("load:read")).Get("/today", s.handleStudentLoadToday)
		})

		// Course-level views
		r.Route("/courses/{id}", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("conflicts:read")).Get("/conflicts", s.handleCourseConflicts)
			r.With(s.authMiddleware.RequirePermission("load:read")).Get("/load", s.handleCourseLoad)
			r.With(s.authMiddleware.RequirePermission("deadlines:read")).Get("/deadlines", s.handleCourseDeadlines)
		})

		// Deadlines
		r.Route("/deadlines", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("deadlines:write")).Post("/", s.handleCreateDeadline)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission("deadlines:read")).Get("/", s.handleGetDeadline)
				r.With(s.authMiddleware.RequirePermission("deadlines:write")).Put("/", s.handleUpdateDeadline)
				r.With(s.authMiddleware.RequirePermission("deadlines:write")).Delete("/", s.handleDeleteDeadline)
			})
		})

		// Tips
		r.Route("/tips", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("tips:write")).Post("/student", s.handleGenerateStudentTip)
			r.With(s.authMiddleware.RequirePermission("tips:write")).Post("/professor", s.handleProfessorSuggestion)
			r.With(s.authMiddleware.RequirePermission("tips:write")).Put("/{id}/read", s.handleMarkTipRead)
		})
		r.With(s.authMiddleware.RequirePermission("tips:read")).Get("/users/{id}/tips", s.handleUserTips)

		// Live event stream
		r.With(s.authMiddleware.RequirePermission("events:read")).Get("/events", s.handleEventsWS)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
