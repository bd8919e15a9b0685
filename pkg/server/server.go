// Package server provides a public API for embedding the AgriSense
// classification service.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TechRanger101/AgriSense-App/internal/api"
	"github.com/TechRanger101/AgriSense-App/internal/config"
	"github.com/TechRanger101/AgriSense-App/internal/imagery"
	"github.com/TechRanger101/AgriSense-App/internal/pipeline"
	"github.com/TechRanger101/AgriSense-App/internal/sentinelhub"
	"github.com/TechRanger101/AgriSense-App/internal/stac"
)

// Options configures the classification server.
type Options struct {
	// ClientID and ClientSecret are the Sentinel Hub OAuth2 credentials (required).
	ClientID     string
	ClientSecret string

	// SentinelHubURL is the Sentinel Hub API base URL.
	// Default: "https://services.sentinel-hub.com"
	SentinelHubURL string

	// TokenURL is the OAuth2 token endpoint.
	// Default: the Sentinel Hub realm token endpoint
	TokenURL string

	// Timeout bounds a single imagery fetch attempt.
	// Default: 60s
	Timeout time.Duration

	// MaxRetries is the number of retries after a transient fetch failure.
	// Default: 0
	MaxRetries uint64

	// Width and Height are the raster size in pixels.
	// Default: 512x354
	Width  int
	Height int

	// Concurrency bounds the imagery fetches of one forecast.
	// Default: 4
	Concurrency int

	// MaxSamples caps the forecast training set.
	// Default: 1000
	MaxSamples int

	// CatalogStartDate is the first date searched for acquisitions.
	// Default: "2023-01-01"
	CatalogStartDate string

	// CacheTTL is how long availability results are kept. Zero disables the cache.
	CacheTTL time.Duration

	// ProductsDir is the path to product definition JSON files.
	// Default: "" (uses built-in products)
	ProductsDir string

	// Recorder archives completed runs.
	// Default: nil (runs are not archived)
	Recorder pipeline.Recorder

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a classification server that can be embedded in another application.
type Server struct {
	router chi.Router
	cache  *stac.MemoryDateCache
}

// New creates a new server with the given options.
func New(opts Options) (*Server, error) {
	if opts.SentinelHubURL == "" {
		opts.SentinelHubURL = "https://services.sentinel-hub.com"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = "https://services.sentinel-hub.com/auth/realms/main/protocol/openid-connect/token"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Width == 0 {
		opts.Width = pipeline.DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = pipeline.DefaultHeight
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = pipeline.DefaultConcurrency
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 1000
	}
	if opts.CatalogStartDate == "" {
		opts.CatalogStartDate = "2023-01-01"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// Build internal config
	cfg := &config.Config{
		SentinelHub: config.SentinelHubConfig{
			BaseURL:       opts.SentinelHubURL,
			TokenURL:      opts.TokenURL,
			ClientID:      opts.ClientID,
			ClientSecret:  opts.ClientSecret,
			Timeout:       opts.Timeout,
			MaxRetries:    opts.MaxRetries,
			RetryInterval: imagery.DefaultRetryOptions().InitialInterval,
			Width:         opts.Width,
			Height:        opts.Height,
		},
		Pipeline: config.PipelineConfig{
			Concurrency: opts.Concurrency,
			MaxSamples:  opts.MaxSamples,
		},
		Catalog: config.CatalogConfig{
			Collection: sentinelhub.DefaultCollection,
			StartDate:  opts.CatalogStartDate,
			PageLimit:  100,
			CacheTTL:   opts.CacheTTL,
		},
		Products: config.ProductsConfig{
			Dir: opts.ProductsDir,
		},
	}

	return NewFromConfig(cfg, opts.Recorder, opts.Logger)
}

// NewFromConfig wires the service from a loaded configuration. recorder may
// be nil.
func NewFromConfig(cfg *config.Config, recorder pipeline.Recorder, logger *slog.Logger) (*Server, error) {
	if cfg.SentinelHub.ClientID == "" || cfg.SentinelHub.ClientSecret == "" {
		return nil, fmt.Errorf("Sentinel Hub client credentials are required")
	}
	start, err := cfg.Catalog.Start()
	if err != nil {
		return nil, fmt.Errorf("invalid catalog start date %q: %w", cfg.Catalog.StartDate, err)
	}

	products, err := config.LoadProducts(cfg.Products.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	logger.Info("loaded products", "count", products.Count(), "ids", products.IDs())

	hub := sentinelhub.NewClient(cfg.SentinelHub.BaseURL, sentinelhub.Credentials{
		ClientID:     cfg.SentinelHub.ClientID,
		ClientSecret: cfg.SentinelHub.ClientSecret,
		TokenURL:     cfg.SentinelHub.TokenURL,
	}, cfg.SentinelHub.Timeout).
		WithLogger(logger).
		WithCollection(cfg.Catalog.Collection)

	fetcher := imagery.NewRetryingFetcher(hub, imagery.RetryOptions{
		AttemptTimeout:  cfg.SentinelHub.Timeout,
		MaxRetries:      cfg.SentinelHub.MaxRetries,
		InitialInterval: cfg.SentinelHub.RetryInterval,
	}).WithLogger(logger)

	serviceOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRasterSize(cfg.SentinelHub.Width, cfg.SentinelHub.Height),
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
		pipeline.WithMaxSamples(cfg.Pipeline.MaxSamples),
	}
	if cfg.Pipeline.Seed != 0 {
		serviceOpts = append(serviceOpts, pipeline.WithRand(cfg.Pipeline.Seed))
	}
	if recorder != nil {
		serviceOpts = append(serviceOpts, pipeline.WithRecorder(recorder))
	}
	service := pipeline.NewService(fetcher, serviceOpts...)

	handlers, err := api.NewHandlers(cfg, service, hub, products, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{}
	if cfg.Catalog.CacheTTL > 0 {
		s.cache = stac.NewMemoryDateCache(cfg.Catalog.CacheTTL, cfg.Catalog.CacheTTL)
		handlers.WithDateCache(s.cache)
	}

	s.router = api.NewRouter(handlers, logger)

	logger.Info("classification service ready",
		"base_url", cfg.SentinelHub.BaseURL,
		"catalog_start", start.Format(config.DateLayout),
		"raster", fmt.Sprintf("%dx%d", cfg.SentinelHub.Width, cfg.SentinelHub.Height),
	)

	return s, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close stops background goroutines (cache cleanup).
func (s *Server) Close() {
	if s.cache != nil {
		s.cache.Stop()
	}
}
