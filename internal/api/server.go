// Package api provides the HTTP API server and handlers for the Atelier application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atelierapp/atelier-server/internal/ratelimit"
	"github.com/atelierapp/atelier-server/internal/store"
	"github.com/atelierapp/atelier-server/internal/telemetry"
)

// Match requests fan out to the generative model, so they get a stricter
// per-client budget than the rest of the API.
const (
	matchRequestsPerSecond = 5
	matchBurst             = 20
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *store.Store
	services *Services
	recorder *telemetry.Recorder
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
	limiter  *ratelimit.KeyedLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, recorder *telemetry.Recorder, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))

	limiter := ratelimit.New(matchRequestsPerSecond, matchBurst)
	router.Use(matchRateLimit(limiter))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("Atelier API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	humaAPI := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:    st,
		services: services,
		recorder: recorder,
		router:   router,
		api:      humaAPI,
		logger:   logger,
		limiter:  limiter,
	}

	s.registerHealthRoutes()
	s.registerCatalogRoutes()
	s.registerTextureRoutes()
	s.registerAdminRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
