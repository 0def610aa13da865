package service

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache maps keys to values that expire after a TTL
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
}

// RistrettoCache is a bounded in-memory Cache. Every entry costs 1, so
// maxItems bounds the number of live entries.
type RistrettoCache[V any] struct {
	cache *ristretto.Cache[string, V]
}

// NewRistrettoCache creates a cache holding at most maxItems entries
func NewRistrettoCache[V any](maxItems int) (*RistrettoCache[V], error) {
	if maxItems < 1 {
		return nil, fmt.Errorf("cache: maxItems must be >= 1, got %d", maxItems)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters:        int64(maxItems) * 10,
		MaxCost:            int64(maxItems),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create ristretto cache: %w", err)
	}
	return &RistrettoCache[V]{cache: c}, nil
}

// Get returns a live entry
func (c *RistrettoCache[V]) Get(key string) (V, bool) {
	return c.cache.Get(key)
}

// Set stores an entry and waits until it is visible to Get
func (c *RistrettoCache[V]) Set(key string, value V, ttl time.Duration) {
	c.cache.SetWithTTL(key, value, 1, ttl)
	c.cache.Wait()
}

// Close stops the cache's background goroutines
func (c *RistrettoCache[V]) Close() {
	c.cache.Close()
}
