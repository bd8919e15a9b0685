package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/TechRanger101/AgriSense-App/internal/clip"
	"github.com/TechRanger101/AgriSense-App/internal/imagery"
	"github.com/TechRanger101/AgriSense-App/internal/index"
	"github.com/TechRanger101/AgriSense-App/internal/pipeline"
)

// writePipelineError maps a pipeline or catalog error to a response.
func (h *Handlers) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var (
		invalid  *clip.InvalidGeometryError
		upstream *imagery.UpstreamError
	)

	switch {
	case errors.Is(err, context.Canceled):
		h.logger.InfoContext(ctx, "request cancelled by client",
			slog.String("path", r.URL.Path),
		)
		return

	case errors.As(err, &invalid), errors.Is(err, clip.ErrInvalidGeometry):
		WriteInvalidParameter(w, err.Error())

	case errors.Is(err, pipeline.ErrNoDataAvailable):
		WriteNoData(w, "no valid data available for the given date and area, try adjusting the date or area")

	case errors.Is(err, imagery.ErrFetchTimeout), errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(ctx, "upstream timed out",
			slog.String("error", err.Error()),
		)
		WriteUpstreamTimeout(w, "imagery provider timed out")

	case errors.Is(err, imagery.ErrFetchFailed), errors.As(err, &upstream):
		h.logger.ErrorContext(ctx, "upstream request failed",
			slog.String("error", err.Error()),
		)
		WriteUpstreamError(w, "imagery provider request failed")

	case errors.Is(err, index.ErrMissingBand):
		h.logger.ErrorContext(ctx, "imagery is missing a band",
			slog.String("error", err.Error()),
		)
		WriteInternalErrorWithRequestID(w, "imagery is missing a required band", GetRequestID(ctx))

	default:
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("error", err.Error()),
		)
		WriteInternalErrorWithRequestID(w, "internal server error", GetRequestID(ctx))
	}
}
