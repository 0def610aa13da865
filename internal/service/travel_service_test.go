package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/routeplanner/internal/domain"
)

func located(id int64, name string, lat, lon float64) domain.Destination {
	return domain.Destination{ID: id, City: "Da Lat", Name: name, Latitude: ptr(lat), Longitude: ptr(lon)}
}

var (
	lake   = located(1, "Xuan Huong Lake", 11.9416, 108.4383)
	garden = located(2, "Flower Garden", 11.9506, 108.4497)
)

func orsServer(t *testing.T, calls *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/driving-car/geojson" || r.Header.Get("Authorization") != "ors-key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req orsRequest
		if err := json.Unmarshal(body, &req); err != nil || len(req.Coordinates) != 2 || req.Coordinates[0][0] != 108.4383 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"features":[{"properties":{"summary":{"duration":450,"distance":2100}}}]}`))
	}))
}

func TestTravelTimeServiceLayers(t *testing.T) {
	var calls atomic.Int32
	srv := orsServer(t, &calls, http.StatusOK)
	defer srv.Close()

	repo := newMemRepo()
	cache := newMapCache[domain.TravelTime]()
	svc := NewTravelTimeService("ors-key", repo, zerolog.Nop(),
		WithORSBaseURL(srv.URL),
		WithTravelCache(cache, time.Hour),
		WithORSRateLimit(0),
	)

	got, err := svc.TravelTime(context.Background(), lake, garden)
	require.NoError(t, err)
	require.Equal(t, "7.50 mins", got.Duration)
	require.Equal(t, 450.0, *got.DurationSeconds)

	// cache hit
	_, err = svc.TravelTime(context.Background(), lake, garden)
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())

	svc.WaitBackground()
	stored, err := repo.GetTravelTime(context.Background(), "Da Lat", lake.ID, garden.ID)
	require.NoError(t, err)
	require.Equal(t, "7.50 mins", stored.Duration)

	// a fresh process reads the table before the API
	fresh := NewTravelTimeService("ors-key", repo, zerolog.Nop(), WithORSBaseURL(srv.URL))
	got, err = fresh.TravelTime(context.Background(), lake, garden)
	require.NoError(t, err)
	require.Equal(t, "7.50 mins", got.Duration)
	require.EqualValues(t, 1, calls.Load())
}

func TestTravelTimeServiceKeysByDestinationID(t *testing.T) {
	var calls atomic.Int32
	srv := orsServer(t, &calls, http.StatusOK)
	defer srv.Close()

	repo := newMemRepo()
	cache := newMapCache[domain.TravelTime]()
	svc := NewTravelTimeService("ors-key", repo, zerolog.Nop(), WithORSBaseURL(srv.URL), WithTravelCache(cache, time.Hour))

	namesake := located(5, garden.Name, 11.9201, 108.4402)
	require.NotEqual(t, travelCacheKey(lake, garden), travelCacheKey(lake, namesake))

	_, err := svc.TravelTime(context.Background(), lake, garden)
	require.NoError(t, err)
	_, err = svc.TravelTime(context.Background(), lake, namesake)
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())

	svc.WaitBackground()
	_, err = repo.GetTravelTime(context.Background(), "Da Lat", lake.ID, namesake.ID)
	require.NoError(t, err)
	_, err = repo.GetTravelTime(context.Background(), "Da Lat", garden.ID, lake.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTravelTimeServiceStatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantErr     error
		unavailable bool
	}{
		{"throttled", http.StatusTooManyRequests, domain.ErrRateLimited, false},
		{"no route", http.StatusNotFound, nil, true},
		{"server error", http.StatusInternalServerError, domain.ErrProviderUnavailable, false},
		{"bad key", http.StatusForbidden, domain.ErrConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := orsServer(t, &calls, tt.status)
			defer srv.Close()

			cache := newMapCache[domain.TravelTime]()
			svc := NewTravelTimeService("ors-key", nil, zerolog.Nop(), WithORSBaseURL(srv.URL), WithTravelCache(cache, time.Hour))
			got, err := svc.TravelTime(context.Background(), lake, garden)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.unavailable, !got.Available())
			_, cached := cache.Get(travelCacheKey(lake, garden))
			require.False(t, cached)
		})
	}
}

func TestTravelTimeServiceShortCircuits(t *testing.T) {
	svc := NewTravelTimeService("", nil, zerolog.Nop())

	same, err := svc.TravelTime(context.Background(), lake, lake)
	require.NoError(t, err)
	require.Zero(t, same.Minutes())
	require.True(t, same.Available())

	_, err = svc.TravelTime(context.Background(), lake, garden)
	require.ErrorIs(t, err, domain.ErrConfiguration)

	keyed := NewTravelTimeService("ors-key", nil, zerolog.Nop(), WithORSBaseURL("http://127.0.0.1:1"))
	got, err := keyed.TravelTime(context.Background(), lake, domain.Destination{ID: 3, City: "Da Lat", Name: "Unknown"})
	require.NoError(t, err)
	require.False(t, got.Available())
}

func TestTravelTimeServiceRateLimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := orsServer(t, &calls, http.StatusOK)
	defer srv.Close()

	svc := NewTravelTimeService("ors-key", nil, zerolog.Nop(), WithORSBaseURL(srv.URL), WithORSRateLimit(1))
	_, err := svc.TravelTime(context.Background(), lake, garden)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.TravelTime(ctx, garden, lake)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	require.EqualValues(t, 1, calls.Load())
}

func TestEstimatedTravelTimeProvider(t *testing.T) {
	est := NewEstimatedTravelTimeProvider()

	got, err := est.TravelTime(context.Background(), lake, garden)
	require.NoError(t, err)
	require.True(t, got.IsMock)
	require.InDelta(t, 3.2, got.Minutes(), 0.1)

	got, err = est.TravelTime(context.Background(), lake, domain.Destination{Name: "Unknown"})
	require.NoError(t, err)
	require.False(t, got.Available())
}
