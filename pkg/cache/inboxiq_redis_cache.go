// Package cache wraps Redis with the small set of operations the service needs.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a thin JSON-aware Redis client.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// GetJSON reads key into dest. found is false on a miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// SetMultiJSON writes all items in one pipeline.
func (c *RedisCache) SetMultiJSON(ctx context.Context, items map[string]any, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for key, value := range items {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		pipe.Set(ctx, key, data, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// PushCapped appends value to the list at key and trims it to the newest max entries.
func (c *RedisCache) PushCapped(ctx context.Context, key string, value any, max int64, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -max, -1)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Range returns the raw list entries at key, oldest first.
func (c *RedisCache) Range(ctx context.Context, key string) ([]string, error) {
	items, err := c.client.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return items, err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
