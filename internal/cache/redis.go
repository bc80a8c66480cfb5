// Package cache provides the Redis backend for the merged-ranges cache,
// used when several API processes should share one view.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"lexicon/api/internal/ranges"
)

// Redis implements ranges.Cache on a Redis server. Entries carry no TTL;
// invalidation is always explicit, driven by the mutation engine. Backend
// failures degrade to cache misses so a Redis outage never blocks reads.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, prefix: "ranges:"}, nil
}

// NewRedisWithClient wraps an existing Redis client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "ranges:"}
}

func (c *Redis) key(projectID string) string {
	return c.prefix + projectID
}

// Get returns the cached merged view for a project. The JSON round-trip
// means callers always own a fresh copy.
func (c *Redis) Get(ctx context.Context, projectID string) (map[string]*ranges.Range, bool) {
	data, err := c.client.Get(ctx, c.key(projectID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache: get ranges for %q: %v", projectID, err)
		return nil, false
	}

	var view map[string]*ranges.Range
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		log.Printf("cache: decode ranges for %q: %v", projectID, err)
		return nil, false
	}
	return view, true
}

// Put stores the merged view without expiry.
func (c *Redis) Put(ctx context.Context, projectID string, view map[string]*ranges.Range) {
	data, err := json.Marshal(view)
	if err != nil {
		log.Printf("cache: encode ranges for %q: %v", projectID, err)
		return
	}
	if err := c.client.Set(ctx, c.key(projectID), data, 0).Err(); err != nil {
		log.Printf("cache: put ranges for %q: %v", projectID, err)
	}
}

// Invalidate drops the one project's entry.
func (c *Redis) Invalidate(ctx context.Context, projectID string) {
	if err := c.client.Del(ctx, c.key(projectID)).Err(); err != nil {
		log.Printf("cache: invalidate ranges for %q: %v", projectID, err)
	}
}

// Close closes the Redis connection.
func (c *Redis) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
