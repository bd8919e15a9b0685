package translate

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectTime  time.Time
		expectError bool
	}{
		{
			name:       "calendar date",
			input:      "2024-03-15",
			expectTime: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "RFC3339 format",
			input:      "2024-03-15T14:30:45Z",
			expectTime: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "offset crossing midnight",
			input:      "2024-03-15T01:30:00+03:00",
			expectTime: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "RFC3339Nano format",
			input:      "2024-03-15T14:30:45.123456789Z",
			expectTime: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "without timezone",
			input:      "2024-03-15T14:30:45",
			expectTime: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "with whitespace",
			input:      "  2024-03-15  ",
			expectTime: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "invalid format",
			input:       "15/03/2024",
			expectError: true,
		},
		{
			name:        "impossible date",
			input:       "2024-02-30",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDate(tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidDate) {
					t.Errorf("Expected ErrInvalidDate, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if !result.Equal(tt.expectTime) {
				t.Errorf("Expected time %v, got %v", tt.expectTime, result)
			}

			if result.Location() != time.UTC {
				t.Errorf("Expected UTC location, got %v", result.Location())
			}
		})
	}
}

func TestDayInterval(t *testing.T) {
	from, to := DayInterval(time.Date(2024, 3, 15, 17, 5, 0, 0, time.UTC))

	if !from.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected start of day, got %v", from)
	}
	if !to.Equal(time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("Expected end of day, got %v", to)
	}
}

func TestFormatInterval(t *testing.T) {
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)

	expected := "2023-01-01T00:00:00Z/2024-03-15T23:59:59Z"
	if got := FormatInterval(from, to); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestFormatDate(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	if got := FormatDate(time.Date(2024, 3, 16, 1, 0, 0, 0, loc)); got != "2024-03-15" {
		t.Errorf("Expected UTC date 2024-03-15, got %s", got)
	}
}
