package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DurationUnavailable is the sentinel duration reported when no route exists
const DurationUnavailable = "N/A"

// TravelTime is the travel duration between two destinations.
// Duration is either "<minutes> mins" or DurationUnavailable.
type TravelTime struct {
	Duration        string   `json:"duration"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	IsMock          bool     `json:"is_mock,omitempty"`
}

// UnavailableTravelTime returns the "N/A" sentinel result
func UnavailableTravelTime() TravelTime {
	return TravelTime{Duration: DurationUnavailable}
}

// TravelTimeFromSeconds builds a TravelTime with the "%.2f mins" representation
func TravelTimeFromSeconds(seconds float64) TravelTime {
	s := seconds
	return TravelTime{
		Duration:        fmt.Sprintf("%.2f mins", seconds/60),
		DurationSeconds: &s,
	}
}

// Available reports whether a usable duration was returned
func (t TravelTime) Available() bool {
	if t.Duration == DurationUnavailable {
		return false
	}
	return t.Duration != "" || t.DurationSeconds != nil
}

// Minutes returns the duration in minutes. Unparsable or missing values count as 0.
func (t TravelTime) Minutes() float64 {
	if t.DurationSeconds != nil {
		return *t.DurationSeconds / 60
	}
	fields := strings.Fields(t.Duration)
	if len(fields) == 0 {
		return 0
	}
	minutes, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return minutes
}
