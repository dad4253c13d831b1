package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const generationKey = "feed:generation"

// FeedCache stores rendered /api/feed pages. A nil *FeedCache is a valid
// cache that never hits.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFeedCache(ctx context.Context, addr string, ttl time.Duration) (*FeedCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)
	return newFeedCache(client, ttl), nil
}

func newFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{client: client, ttl: ttl}
}

func GeneratePageKey(generation int64, limit, offset int) string {
	return fmt.Sprintf("feed:page:%d:%d:%d", generation, limit, offset)
}

// GetPage returns the cached page body. Redis failures are treated as misses.
func (c *FeedCache) GetPage(ctx context.Context, limit, offset int) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	generation, err := c.generation(ctx)
	if err != nil {
		slog.Warn("Feed cache unavailable", "error", err)
		return nil, false
	}

	data, err := c.client.Get(ctx, GeneratePageKey(generation, limit, offset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Failed to read feed cache", "error", err)
		return nil, false
	}
	return data, true
}

func (c *FeedCache) SetPage(ctx context.Context, limit, offset int, data []byte) {
	if c == nil {
		return
	}

	generation, err := c.generation(ctx)
	if err != nil {
		slog.Warn("Feed cache unavailable", "error", err)
		return
	}

	if err := c.client.Set(ctx, GeneratePageKey(generation, limit, offset), data, c.ttl).Err(); err != nil {
		slog.Warn("Failed to write feed cache", "error", err)
	}
}

// Invalidate moves readers to a fresh key space; old pages expire through their TTL.
func (c *FeedCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		slog.Warn("Failed to invalidate feed cache", "error", err)
	}
}

func (c *FeedCache) Health(ctx context.Context) map[string]any {
	if c == nil {
		return map[string]any{"status": "disabled"}
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return map[string]any{"status": "unhealthy", "error": err.Error()}
	}
	return map[string]any{"status": "healthy"}
}

func (c *FeedCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *FeedCache) generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cache generation: %w", err)
	}
	return generation, nil
}
