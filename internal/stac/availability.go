package stac

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// DateLayout is the layout of acquisition dates.
const DateLayout = "2006-01-02"

// AvailabilityQuery describes a search for acquisition dates over an area.
type AvailabilityQuery struct {
	Collection string
	BBox       orb.Bound
	Start      time.Time
	End        time.Time
	// MaxCloudCover is exclusive, in percent.
	MaxCloudCover int
	Limit         int
}

// SearchRequest builds the first page request for q.
func (q AvailabilityQuery) SearchRequest() (SearchRequest, error) {
	if q.End.Before(q.Start) {
		return SearchRequest{}, fmt.Errorf("end date %s is before start date %s", q.End.Format(DateLayout), q.Start.Format(DateLayout))
	}

	bbox := []float64{q.BBox.Min[0], q.BBox.Min[1], q.BBox.Max[0], q.BBox.Max[1]}
	if err := ValidateBBox(bbox); err != nil {
		return SearchRequest{}, fmt.Errorf("invalid bbox: %w", err)
	}

	f, err := CloudCoverFilter(q.MaxCloudCover)
	if err != nil {
		return SearchRequest{}, err
	}

	from := startOfDay(q.Start)
	to := startOfDay(q.End).Add(24*time.Hour - time.Second)

	return SearchRequest{
		Collections: []string{q.Collection},
		BBox:        bbox,
		DateTime:    from.Format(time.RFC3339) + "/" + to.Format(time.RFC3339),
		Limit:       q.Limit,
		Filter:      f,
		FilterLang:  FilterLangCQL2JSON,
		Fields:      &Fields{Include: []string{"properties.datetime"}},
	}, nil
}

// Key identifies q for caching.
func (q AvailabilityQuery) Key() string {
	return fmt.Sprintf("%s|%g,%g,%g,%g|%s|%s|%d",
		q.Collection,
		q.BBox.Min[0], q.BBox.Min[1], q.BBox.Max[0], q.BBox.Max[1],
		q.Start.UTC().Format(DateLayout), q.End.UTC().Format(DateLayout),
		q.MaxCloudCover,
	)
}

// AcquisitionDates returns the distinct UTC dates of the items' datetime
// property in ascending order.
func AcquisitionDates(items []*Item) ([]string, error) {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		t, err := ItemDatetime(item)
		if err != nil {
			return nil, err
		}
		seen[t.UTC().Format(DateLayout)] = struct{}{}
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// ItemDatetime parses the datetime property of an item.
func ItemDatetime(item *Item) (time.Time, error) {
	raw, ok := item.Properties["datetime"]
	if !ok || raw == nil {
		return time.Time{}, fmt.Errorf("item %q has no datetime", item.Id)
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.RawMessage:
		if err := json.Unmarshal(v, &s); err != nil {
			return time.Time{}, fmt.Errorf("item %q datetime: %w", item.Id, err)
		}
	default:
		return time.Time{}, fmt.Errorf("item %q datetime has type %T", item.Id, raw)
	}

	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("item %q datetime: %w", item.Id, err)
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
