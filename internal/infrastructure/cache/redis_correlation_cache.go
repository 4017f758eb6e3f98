package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shelfwise/backend/internal/domain/analytics"
	"github.com/shelfwise/backend/internal/infrastructure/config"
)

const correlationCacheKey = "analytics:correlations:top"

// RedisCorrelationCache implements CorrelationCache on Redis. Suitable for
// distributed deployments where multiple instances serve the read endpoint.
type RedisCorrelationCache struct {
	client *redis.Client
	key    string
}

// NewRedisCorrelationCache creates a Redis-backed cache and verifies the
// connection.
func NewRedisCorrelationCache(cfg config.RedisConfig) (*RedisCorrelationCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCorrelationCache{client: client, key: correlationCacheKey}, nil
}

// NewRedisCorrelationCacheWithClient creates a cache with an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisCorrelationCacheWithClient(client *redis.Client) *RedisCorrelationCache {
	return &RedisCorrelationCache{client: client, key: correlationCacheKey}
}

// Get returns the cached edge list, or a miss when absent or unreadable.
func (c *RedisCorrelationCache) Get(ctx context.Context) ([]analytics.CorrelationEdge, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read correlation cache: %w", err)
	}

	var edges []analytics.CorrelationEdge
	if err := json.Unmarshal(raw, &edges); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return edges, true, nil
}

// Set stores the edge list for ttl.
func (c *RedisCorrelationCache) Set(ctx context.Context, edges []analytics.CorrelationEdge, ttl time.Duration) error {
	raw, err := json.Marshal(edges)
	if err != nil {
		return fmt.Errorf("failed to encode correlation cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write correlation cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry.
func (c *RedisCorrelationCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate correlation cache: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *RedisCorrelationCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCorrelationCache implements CorrelationCache
var _ CorrelationCache = (*RedisCorrelationCache)(nil)
