package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// classifyRequest is the body of POST /{product}.
type classifyRequest struct {
	Geometry json.RawMessage `json:"geometry"`
	Date     string          `json:"date"`
}

// forecastRequest is the body of POST /{product}f: a FeatureCollection whose
// features carry the acquisition date in their properties.
type forecastRequest struct {
	Features []forecastFeature `json:"features"`
}

type forecastFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties struct {
		Date string `json:"date"`
	} `json:"properties"`
}

// availabilityRequest is the body of POST /sentinel-data-availability.
type availabilityRequest struct {
	Geometry      json.RawMessage `json:"geometry"`
	EndDate       string          `json:"end_date"`
	CloudCoverage json.RawMessage `json:"cloud_coverage"`
}

// defaultCloudCoverage admits every scene.
const defaultCloudCoverage = 100

// cloudCoverage reads cloud_coverage as a number or numeric string.
func (req *availabilityRequest) cloudCoverage() (int, error) {
	raw := strings.TrimSpace(string(req.CloudCoverage))
	if raw == "" || raw == "null" {
		return defaultCloudCoverage, nil
	}

	var n json.Number
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(req.CloudCoverage, &s); err != nil {
			return 0, fmt.Errorf("cloud_coverage must be an integer")
		}
		n = json.Number(strings.TrimSpace(s))
	} else if err := json.Unmarshal(req.CloudCoverage, &n); err != nil {
		return 0, fmt.Errorf("cloud_coverage must be an integer")
	}

	v, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, fmt.Errorf("cloud_coverage must be an integer")
		}
		v = int(f)
	}
	return v, nil
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is required")
		default:
			return fmt.Errorf("failed to parse request body: %w", err)
		}
	}
	return nil
}
