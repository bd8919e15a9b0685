package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 8 << 20

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(h *Handlers, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Add middleware stack
	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse) // Add X-Request-ID to response headers
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(middleware.Compress(5)) // Gzip compression
	r.Use(ContentTypeJSON)
	r.Use(LimitBody(MaxBodyBytes))
	r.Use(RequireJSON)

	origins := []string{"*"}
	if h.cfg != nil && len(h.cfg.Server.CORSOrigins) > 0 {
		origins = h.cfg.Server.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{RequestIDHeader, ForecastSkippedHeader},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", h.Health)
	r.Get("/products", h.Products)

	r.Post("/sentinel-data-availability", h.Availability)

	// Products and their forecasts: /ndvi, /ndvif, ...
	r.Post("/{product}", h.Classify)

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})

	// 405 handler
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	return r
}
