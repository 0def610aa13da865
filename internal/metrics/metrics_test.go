package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveProvider(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequests.WithLabelValues("weather", "ok"))
	ObserveProvider("weather", "ok", time.Now())
	require.Equal(t, before+1, testutil.ToFloat64(ProviderRequests.WithLabelValues("weather", "ok")))
}

func TestObserveCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("travel_time", "hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("travel_time", "miss"))

	ObserveCache("travel_time", true)
	ObserveCache("travel_time", false)
	ObserveCache("travel_time", false)

	require.Equal(t, hits+1, testutil.ToFloat64(CacheLookups.WithLabelValues("travel_time", "hit")))
	require.Equal(t, misses+2, testutil.ToFloat64(CacheLookups.WithLabelValues("travel_time", "miss")))
}
