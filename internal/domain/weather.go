package domain

import (
	"strings"
	"time"
)

// Weather represents current weather observed at a destination
type Weather struct {
	Description string    `json:"description"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    int       `json:"humidity,omitempty"`
	WindSpeed   float64   `json:"wind_speed,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
	IsMock      bool      `json:"is_mock"`
}

// IsClear reports whether the description mentions a clear sky
func (w Weather) IsClear() bool {
	return strings.Contains(strings.ToLower(w.Description), "clear")
}

// IsRainy reports whether the description mentions rain
func (w Weather) IsRainy() bool {
	return strings.Contains(strings.ToLower(w.Description), "rain")
}

// TemperatureOrZero returns the temperature in °C, or 0 when it was not reported
func (w Weather) TemperatureOrZero() float64 {
	if w.Temperature == nil {
		return 0
	}
	return *w.Temperature
}

// WeatherResponse wraps weather data with metadata
type WeatherResponse struct {
	Data    Weather `json:"data"`
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
}
