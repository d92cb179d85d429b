package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores retrieval results in Redis so repeated analyses of
// similar reports skip the search cluster.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// cacheKey hashes the query so arbitrary report text makes a valid,
// bounded Redis key.
func cacheKey(kind, query string) string {
	sum := sha256.Sum256([]byte(query))
	return "retrieval:" + kind + ":" + hex.EncodeToString(sum[:])
}
