package pipeline

import (
	"errors"

	"github.com/TechRanger101/AgriSense-App/internal/clip"
	"github.com/TechRanger101/AgriSense-App/internal/imagery"
)

// ErrNoDataAvailable is returned when no pixel of the fetched scene is valid,
// typically because the date is fully cloud covered or has no acquisition.
var ErrNoDataAvailable = errors.New("no data available")

// ErrMissingInput is recorded for forecast elements without a geometry or date.
var ErrMissingInput = errors.New("missing geometry or date")

// SkipReason classifies why a forecast element contributed nothing.
type SkipReason string

const (
	SkipMissingInput    SkipReason = "missing_input"
	SkipInvalidGeometry SkipReason = "invalid_geometry"
	SkipNoData          SkipReason = "no_data"
	SkipFetchFailed     SkipReason = "fetch_failed"
	SkipFetchTimeout    SkipReason = "fetch_timeout"
	SkipError           SkipReason = "error"
)

// ReasonFor maps a stage error to a skip reason.
func ReasonFor(err error) SkipReason {
	switch {
	case errors.Is(err, ErrMissingInput):
		return SkipMissingInput
	case errors.Is(err, ErrNoDataAvailable):
		return SkipNoData
	case errors.Is(err, clip.ErrInvalidGeometry):
		return SkipInvalidGeometry
	case errors.Is(err, imagery.ErrFetchTimeout):
		return SkipFetchTimeout
	case errors.Is(err, imagery.ErrFetchFailed):
		return SkipFetchFailed
	default:
		return SkipError
	}
}
