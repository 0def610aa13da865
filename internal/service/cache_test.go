package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mapCache is a deterministic Cache for service tests
type mapCache[V any] struct {
	mu    sync.Mutex
	items map[string]V
	ttls  map[string]time.Duration
}

func newMapCache[V any]() *mapCache[V] {
	return &mapCache[V]{items: make(map[string]V), ttls: make(map[string]time.Duration)}
}

func (c *mapCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.ttls[key] = ttl
}

func TestRistrettoCacheSetGet(t *testing.T) {
	c, err := NewRistrettoCache[string](100)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set("Da Lat:A:B", "5.00 mins", time.Minute)
	got, ok := c.Get("Da Lat:A:B")
	require.True(t, ok)
	require.Equal(t, "5.00 mins", got)
}

func TestRistrettoCacheExpiry(t *testing.T) {
	c, err := NewRistrettoCache[int](100)
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", 1, 50*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestNewRistrettoCacheRejectsZeroSize(t *testing.T) {
	_, err := NewRistrettoCache[int](0)
	require.Error(t, err)
}
