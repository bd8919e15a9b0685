package sentinelhub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/TechRanger101/AgriSense-App/internal/stac"
)

// MaxPages bounds the number of catalog pages read for one query.
const MaxPages = 50

// Search runs one catalog search page.
func (c *Client) Search(ctx context.Context, req stac.SearchRequest) (*stac.ItemCollection, error) {
	if err := stac.ValidateSearchRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	c.logger.DebugContext(ctx, "executing catalog search",
		slog.String("datetime", req.DateTime),
		slog.Int("limit", req.Limit),
	)

	resp, err := c.post(ctx, catalogPath, req, "application/geo+json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result stac.ItemCollection
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode catalog response",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	c.logger.DebugContext(ctx, "catalog search completed",
		slog.Int("feature_count", len(result.Features)),
	)

	return &result, nil
}

// AcquisitionDates follows the catalog pages for q and returns the distinct
// acquisition dates in ascending order.
func (c *Client) AcquisitionDates(ctx context.Context, q stac.AvailabilityQuery) ([]string, error) {
	req, err := q.SearchRequest()
	if err != nil {
		return nil, err
	}

	var items []*stac.Item
	for page := 0; ; page++ {
		if page == MaxPages {
			return nil, fmt.Errorf("catalog search exceeded %d pages", MaxPages)
		}

		result, err := c.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Features...)

		next, ok := result.NextToken()
		if !ok || len(result.Features) == 0 {
			break
		}
		req = req.WithNext(next)
	}

	dates, err := stac.AcquisitionDates(items)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog items: %w", err)
	}
	return dates, nil
}
