package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/TechRanger101/AgriSense-App/internal/clip"
	"github.com/TechRanger101/AgriSense-App/internal/forecast"
	"github.com/TechRanger101/AgriSense-App/internal/translate"
	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// ForecastInput is one observed date of a forecast request.
type ForecastInput struct {
	Geometry *geojson.Geometry
	Date     time.Time
	// Err marks an element the caller could not decode. It is skipped with
	// the reason ReasonFor(Err).
	Err error
}

// Skip records an element that contributed nothing to a forecast.
type Skip struct {
	Index  int
	Reason SkipReason
	Err    error
}

// ForecastReport summarizes a forecast run.
type ForecastReport struct {
	Elements  int
	Succeeded int
	Skipped   []Skip
	Collect   forecast.CollectStats
}

// RunForecast classifies every element with the product's forecast table and
// runs the product's forecast mode over the accumulated features. Element
// failures are reported in the ForecastReport and never fail the run. Only
// cancellation of ctx is returned as an error.
func (s *Service) RunForecast(ctx context.Context, elements []ForecastInput, product Product) (*geojson.FeatureCollection, *ForecastReport, error) {
	start := time.Now()

	var (
		results = make([]*geojson.FeatureCollection, len(elements))
		errs    = make([]error, len(elements))
		queries = make([]orb.Geometry, len(elements))
	)

	for i, el := range elements {
		if el.Err != nil {
			errs[i] = el.Err
			continue
		}
		if el.Geometry == nil || el.Date.IsZero() {
			errs[i] = ErrMissingInput
			continue
		}
		q, err := el.Geometry.QueryPolygon()
		if err != nil {
			errs[i] = &clip.InvalidGeometryError{Err: err}
			continue
		}
		queries[i] = q
	}

	g, gctx := s.group(ctx)
	for i, el := range elements {
		if queries[i] == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				errs[i] = gctx.Err()
				return nil
			}
			fc, err := s.classify(gctx, queries[i], el.Date, product.ForecastTable, product.ForecastProperty, product)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = fc
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := &ForecastReport{Elements: len(elements)}
	collections := make([]*geojson.FeatureCollection, 0, len(elements))
	for i := range elements {
		if errs[i] != nil {
			skip := Skip{Index: i, Reason: ReasonFor(errs[i]), Err: errs[i]}
			report.Skipped = append(report.Skipped, skip)
			s.logger.WarnContext(ctx, "forecast element skipped",
				slog.String("product", product.ID),
				slog.Int("index", i),
				slog.String("reason", string(skip.Reason)),
				slog.String("error", errs[i].Error()),
			)
			continue
		}
		report.Succeeded++
		collections = append(collections, results[i])
	}

	samples, stats := forecast.Collect(collections, product.ForecastProperty)
	report.Collect = stats

	fc, err := forecast.Run(product.Mode, samples, forecast.Options{
		MaxSamples: s.maxSamples,
		Rand:       s.newRand(),
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "forecast complete",
		slog.String("product", product.ID),
		slog.String("mode", string(product.Mode)),
		slog.Int("elements", report.Elements),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("samples", len(samples)),
		slog.Int("features", fc.Len()),
		slog.Duration("duration", time.Since(start)),
	)

	rec := RunRecord{
		Product:  product.ID,
		Kind:     KindForecast,
		Features: fc.Len(),
		Skipped:  len(report.Skipped),
		Duration: time.Since(start),
	}
	if q, at, ok := firstQuery(elements, queries); ok {
		rec.Query, rec.AcquiredOn = q, translate.StartOfDay(at)
	}
	s.record(ctx, rec)

	return fc, report, nil
}

func firstQuery(elements []ForecastInput, queries []orb.Geometry) (orb.Geometry, time.Time, bool) {
	for i, q := range queries {
		if q != nil {
			return q, elements[i].Date, true
		}
	}
	return nil, time.Time{}, false
}
