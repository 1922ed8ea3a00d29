package arxiv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL keeps responses long enough to absorb repeat searches
// without serving stale metadata for updated papers.
const DefaultCacheTTL = 15 * time.Minute

// Cache stores serialized API responses in Redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a response cache on the given Redis client.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached papers for key, with ok=false on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]models.ArxivPaper, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var papers []models.ArxivPaper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, false, err
	}
	return papers, true, nil
}

// Set stores papers under key for the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, papers []models.ArxivPaper) error {
	data, err := json.Marshal(papers)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}
