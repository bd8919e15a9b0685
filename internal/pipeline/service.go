// Package pipeline runs the fetch, classify, vectorize and clip sequence for
// single dates and forecasts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/TechRanger101/AgriSense-App/internal/clip"
	"github.com/TechRanger101/AgriSense-App/internal/forecast"
	"github.com/TechRanger101/AgriSense-App/internal/imagery"
	"github.com/TechRanger101/AgriSense-App/internal/index"
	"github.com/TechRanger101/AgriSense-App/internal/raster"
	"github.com/TechRanger101/AgriSense-App/internal/translate"
	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// Defaults for a Service built without options.
const (
	DefaultWidth       = 512
	DefaultHeight      = 354
	DefaultConcurrency = 4
)

// Service runs classification requests against an imagery fetcher.
type Service struct {
	fetcher     imagery.Fetcher
	logger      *slog.Logger
	recorder    Recorder
	width       int
	height      int
	concurrency int
	maxSamples  int
	seed        uint64
	seeded      bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRasterSize sets the size of fetched rasters in pixels.
func WithRasterSize(width, height int) Option {
	return func(s *Service) {
		s.width, s.height = width, height
	}
}

// WithConcurrency bounds the number of parallel fetches in a forecast.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxSamples caps the number of regression predictions.
func WithMaxSamples(n int) Option {
	return func(s *Service) {
		s.maxSamples = n
	}
}

// WithRand makes forecast sampling deterministic.
func WithRand(seed uint64) Option {
	return func(s *Service) {
		s.seed, s.seeded = seed, true
	}
}

// WithRecorder archives every successful run.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// NewService creates a Service around fetcher.
func NewService(fetcher imagery.Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:     fetcher,
		logger:      slog.Default(),
		width:       DefaultWidth,
		height:      DefaultHeight,
		concurrency: DefaultConcurrency,
		maxSamples:  forecast.DefaultMaxSamples,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunSingle classifies the query area for one date.
func (s *Service) RunSingle(ctx context.Context, query orb.Geometry, date time.Time, product Product) (*geojson.FeatureCollection, error) {
	start := time.Now()

	if err := geojson.ValidateArea(query); err != nil {
		return nil, &clip.InvalidGeometryError{Err: err}
	}

	fc, err := s.classify(ctx, query, date, product.Table, product.Property, product)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "classification complete",
		slog.String("product", product.ID),
		slog.String("date", translate.FormatDate(date)),
		slog.Int("features", fc.Len()),
		slog.Duration("duration", time.Since(start)),
	)

	s.record(ctx, RunRecord{
		Product:    product.ID,
		Kind:       KindSingle,
		AcquiredOn: translate.StartOfDay(date),
		Query:      query,
		Features:   fc.Len(),
		Duration:   time.Since(start),
	})

	return fc, nil
}

// classify runs fetch, evaluate, reclassify, vectorize and clip for one date.
func (s *Service) classify(ctx context.Context, query orb.Geometry, date time.Time, table index.ClassTable, property string, product Product) (*geojson.FeatureCollection, error) {
	bound := query.Bound()
	from, to := translate.DayInterval(date)

	req := imagery.Request{
		BBox:   bound,
		From:   from,
		To:     to,
		Script: product.Script(),
		Width:  s.width,
		Height: s.height,
	}

	bands, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch imagery for %s: %w", translate.FormatDate(date), err)
	}

	values, err := index.Evaluate(bands, product.Formula)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", product.Formula.Name, err)
	}
	if values.AllSentinel() {
		return nil, fmt.Errorf("%w for %s on %s", ErrNoDataAvailable, product.ID, translate.FormatDate(date))
	}

	classes := index.Reclassify(values, table)

	gt, err := raster.FromBounds(bound, bands.Width, bands.Height)
	if err != nil {
		return nil, fmt.Errorf("failed to georeference raster: %w", err)
	}
	regions := raster.Vectorize(classes, gt)

	s.logger.DebugContext(ctx, "raster classified",
		slog.String("product", product.ID),
		slog.String("date", translate.FormatDate(date)),
		slog.Int("valid_pixels", values.ValidCount()),
		slog.Int("regions", len(regions)),
	)

	return clip.Clip(regions, query, property)
}

// newRand returns the sampling source for one forecast run.
func (s *Service) newRand() *rand.Rand {
	if s.seeded {
		return rand.New(rand.NewPCG(s.seed, s.seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (s *Service) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	return g, gctx
}
