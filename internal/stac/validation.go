package stac

import (
	"fmt"
	"strings"
	"time"
)

// ValidateSearchRequest validates a search request before it is sent.
func ValidateSearchRequest(req *SearchRequest) error {
	if req == nil {
		return fmt.Errorf("search request cannot be nil")
	}

	if len(req.Collections) == 0 {
		return fmt.Errorf("at least one collection is required")
	}
	for i, coll := range req.Collections {
		if strings.TrimSpace(coll) == "" {
			return fmt.Errorf("collection at index %d cannot be empty", i)
		}
	}

	if len(req.BBox) > 0 {
		if err := ValidateBBox(req.BBox); err != nil {
			return fmt.Errorf("invalid bbox: %w", err)
		}
	}

	if req.DateTime != "" {
		if _, _, err := ParseDatetimeInterval(req.DateTime); err != nil {
			return fmt.Errorf("invalid datetime: %w", err)
		}
	}

	if req.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", req.Limit)
	}

	if req.Filter != nil && req.FilterLang != FilterLangCQL2JSON {
		return fmt.Errorf("unsupported filter-lang %q", req.FilterLang)
	}

	return nil
}

// ValidateBBox validates a 2D bounding box [west, south, east, north].
func ValidateBBox(bbox []float64) error {
	if len(bbox) != 4 {
		return fmt.Errorf("bbox must have 4 coordinates, got %d", len(bbox))
	}

	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]

	if west < -180 || west > 180 {
		return fmt.Errorf("west longitude must be between -180 and 180, got %f", west)
	}
	if east < -180 || east > 180 {
		return fmt.Errorf("east longitude must be between -180 and 180, got %f", east)
	}
	if south < -90 || south > 90 {
		return fmt.Errorf("south latitude must be between -90 and 90, got %f", south)
	}
	if north < -90 || north > 90 {
		return fmt.Errorf("north latitude must be between -90 and 90, got %f", north)
	}

	if west > east {
		return fmt.Errorf("west longitude (%f) must be less than or equal to east longitude (%f)", west, east)
	}
	if south > north {
		return fmt.Errorf("south latitude (%f) must be less than or equal to north latitude (%f)", south, north)
	}

	return nil
}

// ValidateCloudCover checks a cloud cover bound in percent.
func ValidateCloudCover(maxCover int) error {
	if maxCover < 0 || maxCover > 100 {
		return fmt.Errorf("cloud coverage must be between 0 and 100, got %d", maxCover)
	}
	return nil
}

// ParseDatetimeInterval parses a closed "start/end" RFC 3339 interval.
// Either side may be ".." for an open end.
func ParseDatetimeInterval(dt string) (start, end *time.Time, err error) {
	if dt == "" {
		return nil, nil, fmt.Errorf("datetime interval cannot be empty")
	}

	parts := strings.Split(dt, "/")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid datetime interval format, expected 'start/end', got: %s", dt)
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	if startStr != "" && startStr != ".." {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start datetime: %w", err)
		}
		start = &t
	}

	if endStr != "" && endStr != ".." {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end datetime: %w", err)
		}
		end = &t
	}

	if start != nil && end != nil && start.After(*end) {
		return nil, nil, fmt.Errorf("start datetime (%s) must be before or equal to end datetime (%s)", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return start, end, nil
}
