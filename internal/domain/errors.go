package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means a provider is missing required credentials or settings
	ErrConfiguration = errors.New("configuration error")

	// ErrProviderUnavailable is a transient provider failure
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotFound means the provider or store has no data for the request
	ErrNotFound = errors.New("not found")

	// ErrRateLimited means a provider throttled the caller
	ErrRateLimited = errors.New("rate limited")

	// ErrNotTrained means the value table for a city is all zero
	ErrNotTrained = errors.New("value table not trained")

	// ErrNoFeasibleDestinations means no destination passes the type and budget filter
	ErrNoFeasibleDestinations = errors.New("no feasible destinations")

	// ErrNoFeasibleRoute means no route step could be assembled
	ErrNoFeasibleRoute = errors.New("no feasible route")

	// ErrPersistence wraps value table store read and write failures
	ErrPersistence = errors.New("persistence error")

	// ErrUnknownCity means the catalog has no destinations for the city
	ErrUnknownCity = errors.New("unknown city")

	// ErrInvalidInput marks a malformed caller request
	ErrInvalidInput = errors.New("invalid input")
)

// CityError adds the city and the failed constraint to a sentinel error
type CityError struct {
	City       string
	Constraint string
	Err        error
}

// NewCityError creates a CityError
func NewCityError(city, constraint string, err error) *CityError {
	return &CityError{City: city, Constraint: constraint, Err: err}
}

func (e *CityError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("city %q: %v", e.City, e.Err)
	}
	return fmt.Sprintf("city %q: %v (%s)", e.City, e.Err, e.Constraint)
}

func (e *CityError) Unwrap() error {
	return e.Err
}

// IsSkippable reports whether a provider error should only skip the current step
func IsSkippable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrConfiguration) {
		return false
	}
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrNotFound)
}
