package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV backs the KV port with Redis. Guest carts expire after the
// TTL so abandoned sessions clean themselves up.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{
		client: client,
		ttl:    30 * 24 * time.Hour,
	}
}

func (r *RedisKV) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisKV) Write(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
