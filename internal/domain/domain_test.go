package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTravelTimeMinutes(t *testing.T) {
	tests := []struct {
		name      string
		travel    TravelTime
		minutes   float64
		available bool
	}{
		{"mins string", TravelTime{Duration: "5.00 mins"}, 5, true},
		{"seconds win", TravelTimeFromSeconds(90), 1.5, true},
		{"unavailable", UnavailableTravelTime(), 0, false},
		{"garbage", TravelTime{Duration: "soon"}, 0, true},
		{"empty", TravelTime{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.minutes, tt.travel.Minutes(), 1e-9)
			require.Equal(t, tt.available, tt.travel.Available())
		})
	}
}

func TestTravelTimeFromSecondsFormat(t *testing.T) {
	require.Equal(t, "12.50 mins", TravelTimeFromSeconds(750).Duration)
}

func TestWeatherFlags(t *testing.T) {
	require.True(t, Weather{Description: "Clear Sky"}.IsClear())
	require.True(t, Weather{Description: "light rain"}.IsRainy())
	require.False(t, Weather{Description: "overcast clouds"}.IsClear())
	require.Zero(t, Weather{}.TemperatureOrZero())
}

func TestNormalizeSentiment(t *testing.T) {
	require.Equal(t, -1.0, NormalizeSentiment(0))
	require.Equal(t, 0.0, NormalizeSentiment(2.5))
	require.Equal(t, 1.0, NormalizeSentiment(5))
	require.Equal(t, 1.0, NormalizeSentiment(9))
}

func TestPreferencesMatches(t *testing.T) {
	budget := 50000.0
	prefs := Preferences{PreferredType: "natural", MaxBudget: &budget}

	require.True(t, prefs.Matches(Destination{Type: "natural", TicketPrice: 50000}))
	require.False(t, prefs.Matches(Destination{Type: "natural", TicketPrice: 50001}))
	require.False(t, prefs.Matches(Destination{Type: "cultural"}))
	require.True(t, Preferences{}.Matches(Destination{Type: "cultural", TicketPrice: 1e9}))
}

func TestCityErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("recommend: %w", NewCityError("Da Lat", "preferred_type=cultural", ErrNoFeasibleDestinations))
	require.ErrorIs(t, err, ErrNoFeasibleDestinations)

	var cityErr *CityError
	require.True(t, errors.As(err, &cityErr))
	require.Equal(t, "Da Lat", cityErr.City)
	require.Contains(t, err.Error(), "preferred_type=cultural")
}

func TestIsSkippable(t *testing.T) {
	require.True(t, IsSkippable(fmt.Errorf("ors: %w", ErrProviderUnavailable)))
	require.True(t, IsSkippable(ErrNotFound))
	require.False(t, IsSkippable(ErrRateLimited))
	require.False(t, IsSkippable(fmt.Errorf("%w: %w", ErrProviderUnavailable, ErrRateLimited)))
	require.False(t, IsSkippable(ErrConfiguration))
	require.False(t, IsSkippable(nil))
}
