// internal/store/redis.go
package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"agrimarket-notifications/internal/common/database"
)

// RedisKV adapts the shared Redis client to the KV contract.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(rc *database.RedisClient) *RedisKV {
	return &RedisKV{client: rc.GetClient()}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
