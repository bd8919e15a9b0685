package stac

import (
	"encoding/json"
	"fmt"

	"github.com/planetlabs/go-ogc/filter"
)

// CloudCoverProperty is the item property holding the scene cloud cover in
// percent.
const CloudCoverProperty = "eo:cloud_cover"

// CloudCoverFilter builds the CQL2-JSON expression eo:cloud_cover < maxCover.
func CloudCoverFilter(maxCover int) (json.RawMessage, error) {
	if err := ValidateCloudCover(maxCover); err != nil {
		return nil, err
	}

	f := &filter.Filter{
		Expression: &filter.Comparison{
			Name:  "<",
			Left:  &filter.Property{Name: CloudCoverProperty},
			Right: &filter.Number{Value: float64(maxCover)},
		},
	}

	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cloud cover filter: %w", err)
	}
	return data, nil
}
