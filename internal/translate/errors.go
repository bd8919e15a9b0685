package translate

import (
	"errors"

	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

var (
	// ErrInvalidGeometry is returned when a request geometry cannot be used.
	ErrInvalidGeometry = geojson.ErrInvalidGeometry

	// ErrMissingGeometry is returned when a request carries no geometry.
	ErrMissingGeometry = errors.New("geometry is required")

	// ErrInvalidDate is returned when date parsing fails.
	ErrInvalidDate = errors.New("invalid date format")
)
