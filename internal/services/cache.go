package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService wraps Redis for short-lived values: live site-page snippets
// and rate-limit counters. A cache miss is never an error to callers.
type CacheService struct {
	redis *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{redis: client}
}

func pageSnippetKey(url string) string {
	return "page_snippet:" + url
}

// GetPageSnippet returns the cached snippet for a page, if present.
func (c *CacheService) GetPageSnippet(ctx context.Context, url string) (string, bool) {
	val, err := c.redis.Get(ctx, pageSnippetKey(url)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *CacheService) SetPageSnippet(ctx context.Context, url, snippet string, ttl time.Duration) error {
	return c.redis.Set(ctx, pageSnippetKey(url), snippet, ttl).Err()
}

// IncrementCounter bumps a windowed counter and returns the new value. The
// TTL is set only when the key is created, so the window is fixed-start.
func (c *CacheService) IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	if count == 1 {
		c.redis.Expire(ctx, key, window)
	}
	return count, nil
}

// Ping reports cache health for the /health endpoint.
func (c *CacheService) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
