package imagery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions bounds the work spent on a single fetch.
type RetryOptions struct {
	// AttemptTimeout limits each attempt.
	AttemptTimeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
}

// DefaultRetryOptions returns the settings used when none are configured.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		AttemptTimeout:  60 * time.Second,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
	}
}

// RetryingFetcher wraps a Fetcher with a per-attempt timeout and a retry
// budget for transient failures. Errors that survive the budget wrap
// ErrFetchTimeout or ErrFetchFailed.
type RetryingFetcher struct {
	next   Fetcher
	opts   RetryOptions
	logger *slog.Logger
}

// NewRetryingFetcher wraps next.
func NewRetryingFetcher(next Fetcher, opts RetryOptions) *RetryingFetcher {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultRetryOptions().AttemptTimeout
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultRetryOptions().InitialInterval
	}
	return &RetryingFetcher{
		next:   next,
		opts:   opts,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (f *RetryingFetcher) WithLogger(logger *slog.Logger) *RetryingFetcher {
	f.logger = logger
	return f
}

// Fetch implements Fetcher.
func (f *RetryingFetcher) Fetch(ctx context.Context, req Request) (*BandSample, error) {
	var (
		sample  *BandSample
		attempt int
	)

	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, f.opts.AttemptTimeout)
		defer cancel()

		s, err := f.next.Fetch(attemptCtx, req)
		if err == nil {
			sample = s
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		f.logger.WarnContext(ctx, "imagery fetch attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.opts.InitialInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, f.opts.MaxRetries), ctx)

	err := backoff.Retry(op, policy)
	if err == nil {
		return sample, nil
	}

	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, ErrFetchFailed), errors.Is(err, ErrFetchTimeout):
		return nil, err
	case isTimeout(err):
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrFetchTimeout, attempt, err)
	default:
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrFetchFailed, attempt, err)
	}
}
