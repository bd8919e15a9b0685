package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
)

// Run kinds stored in a RunRecord.
const (
	KindSingle   = "single"
	KindForecast = "forecast"
)

// RunRecord describes one completed run.
type RunRecord struct {
	Product    string
	Kind       string
	AcquiredOn time.Time
	// Query is nil for a forecast where no element had a usable geometry.
	Query    orb.Geometry
	Features int
	Skipped  int
	Duration time.Duration
}

// Recorder archives completed runs.
type Recorder interface {
	Record(ctx context.Context, rec RunRecord) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, rec RunRecord) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, rec RunRecord) error {
	return f(ctx, rec)
}

func (s *Service) record(ctx context.Context, rec RunRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to record run",
			slog.String("product", rec.Product),
			slog.String("kind", rec.Kind),
			slog.String("error", err.Error()),
		)
	}
}
