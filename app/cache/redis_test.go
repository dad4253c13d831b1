package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestGeneratePageKey(t *testing.T) {
	tests := []struct {
		generation    int64
		limit, offset int
		want          string
	}{
		{0, 50, 0, "feed:page:0:50:0"},
		{3, 10, 20, "feed:page:3:10:20"},
	}

	for _, tt := range tests {
		if got := GeneratePageKey(tt.generation, tt.limit, tt.offset); got != tt.want {
			t.Errorf("Expected key '%s', got '%s'", tt.want, got)
		}
	}

	if GeneratePageKey(1, 50, 0) == GeneratePageKey(2, 50, 0) {
		t.Error("Expected different generations to produce different keys")
	}
}

func TestNilFeedCache(t *testing.T) {
	var c *FeedCache
	ctx := context.Background()

	c.SetPage(ctx, 50, 0, []byte("{}"))
	c.Invalidate(ctx)

	if _, ok := c.GetPage(ctx, 50, 0); ok {
		t.Error("Expected nil cache to miss")
	}
	if status := c.Health(ctx)["status"]; status != "disabled" {
		t.Errorf("Expected status 'disabled', got '%v'", status)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Expected no error closing nil cache, got %v", err)
	}
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newFeedCache(client, time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	c.SetPage(ctx, 50, 0, []byte("{}"))

	if _, ok := c.GetPage(ctx, 50, 0); ok {
		t.Error("Expected miss when Redis is unreachable")
	}
	if status := c.Health(ctx)["status"]; status != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got '%v'", status)
	}
}

func TestNewFeedCacheConnectionError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewFeedCache(ctx, "127.0.0.1:1", time.Minute); err == nil {
		t.Error("Expected connection error")
	}
}
