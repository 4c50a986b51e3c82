package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	puuidCacheDuration = 24 * time.Hour
	puuidKeyPrefix     = "puuid:"
)

// RedisIdentityCache caches Riot ID -> PUUID lookups in Redis
type RedisIdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdentityCache connects to the Redis instance described by rawURL
// (redis://[:password@]host:port[/db]) and verifies it with a ping.
func NewRedisIdentityCache(ctx context.Context, rawURL string) (*RedisIdentityCache, error) {
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}

	return &RedisIdentityCache{client: client, ttl: puuidCacheDuration}, nil
}

// GetPUUID returns the cached PUUID for riotID, if any
func (c *RedisIdentityCache) GetPUUID(ctx context.Context, riotID string) (string, bool, error) {
	val, err := c.client.Get(ctx, puuidKeyPrefix+riotID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get PUUID from cache: %w", err)
	}
	return val, true, nil
}

// SetPUUID stores riotID -> puuid with the cache TTL
func (c *RedisIdentityCache) SetPUUID(ctx context.Context, riotID, puuid string) error {
	return c.client.Set(ctx, puuidKeyPrefix+riotID, puuid, c.ttl).Err()
}

// Close closes the Redis connection pool
func (c *RedisIdentityCache) Close() error {
	return c.client.Close()
}

// parseRedisURL accepts both redis:// URLs and bare host:port addresses
func parseRedisURL(rawURL string) (*redis.Options, error) {
	if !strings.Contains(rawURL, "://") {
		return &redis.Options{Addr: rawURL}, nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return opts, nil
}
