package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/armistcxy/url-shorten/internal/entity"
)

// MemoryCache is an in-process cache bounded by item count, every entry
// costing 1.
type MemoryCache struct {
	cache *ristretto.Cache[string, entity.URL]
	ttl   time.Duration
}

func NewMemoryCache(maxItems int64, ttl time.Duration) (*MemoryCache, error) {
	const op = "adapter.repository.cache.NewMemoryCache"

	c, err := ristretto.NewCache(&ristretto.Config[string, entity.URL]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &MemoryCache{
		cache: c,
		ttl:   ttl,
	}, nil
}

func (c *MemoryCache) Get(_ context.Context, id string) (*entity.URL, error) {
	url, ok := c.cache.Get(id)
	if !ok {
		return nil, ErrMiss
	}
	return &url, nil
}

// Set is asynchronous: the entry may be dropped by admission or become
// visible only after the write buffer drains.
func (c *MemoryCache) Set(_ context.Context, url *entity.URL) error {
	c.cache.SetWithTTL(url.ID, *url, 1, c.ttl)
	return nil
}

// Wait blocks until buffered writes are applied.
func (c *MemoryCache) Wait() {
	c.cache.Wait()
}

func (c *MemoryCache) Close() {
	c.cache.Close()
}
