// Package cache provides the Redis-backed user cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection and entry lifetime.
type Options struct {
	URL string
	// TTL bounds how long a user entry is served. Non-positive means DefaultUserTTL.
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
}

// Cache stores user snapshots in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, opts Options) (*Cache, error) {
	redisOpts, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return newCache(client, opts.TTL), nil
}

// clientOptions turns Options into go-redis options. Pool settings left at
// zero keep the go-redis defaults.
func clientOptions(opts Options) (*redis.Options, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts.PoolSize > 0 {
		redisOpts.PoolSize = opts.PoolSize
	}
	if opts.MinIdleConns > 0 {
		redisOpts.MinIdleConns = opts.MinIdleConns
	}
	return redisOpts, nil
}

func newCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
