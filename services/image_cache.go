package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const imageCacheTTL = 24 * time.Hour

// ImageCache remembers image search results keyed by query and limit.
type ImageCache interface {
	Get(ctx context.Context, query string, limit int) ([]string, bool)
	Set(ctx context.Context, query string, limit int, urls []string)
}

// RedisImageCache stores search results as JSON strings with a TTL.
type RedisImageCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisImageCache(client *redis.Client) *RedisImageCache {
	return &RedisImageCache{client: client, ttl: imageCacheTTL}
}

func imageCacheKey(query string, limit int) string {
	return fmt.Sprintf("images:%d:%s", limit, query)
}

func (c *RedisImageCache) Get(ctx context.Context, query string, limit int) ([]string, bool) {
	raw, err := c.client.Get(ctx, imageCacheKey(query, limit)).Result()
	if err != nil {
		return nil, false
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil, false
	}
	return urls, true
}

func (c *RedisImageCache) Set(ctx context.Context, query string, limit int, urls []string) {
	data, err := json.Marshal(urls)
	if err != nil {
		return
	}
	// Best effort.
	_ = c.client.Set(ctx, imageCacheKey(query, limit), data, c.ttl).Err()
}
