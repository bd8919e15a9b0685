// Package translate converts request payloads into typed pipeline inputs.
package translate

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted and produced by the API.
const DateLayout = "2006-01-02"

// Date formats accepted in requests. A full timestamp is reduced to its UTC
// calendar date.
var dateFormats = []string{
	DateLayout,
	time.RFC3339Nano, // "2006-01-02T15:04:05.999999999Z07:00"
	time.RFC3339,     // "2006-01-02T15:04:05Z07:00"
	"2006-01-02T15:04:05",
}

// ParseDate parses a request date and returns midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}

	var lastErr error
	for _, format := range dateFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return StartOfDay(t), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, lastErr)
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayInterval returns the first and last second of the UTC day containing t.
func DayInterval(t time.Time) (time.Time, time.Time) {
	from := StartOfDay(t)
	return from, from.Add(24*time.Hour - time.Second)
}

// FormatDate formats t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatTimestamp formats t as RFC3339 in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatInterval renders a closed STAC datetime interval "start/end".
func FormatInterval(from, to time.Time) string {
	return FormatTimestamp(from) + "/" + FormatTimestamp(to)
}
