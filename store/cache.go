package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jewelry-ecommerce/models"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by CartCache.Get when the owner's cart is
// not cached.
var ErrCacheMiss = errors.New("cart not found in cache")

// CartCache is a read-through cache over the user cart store.
type CartCache interface {
	Get(ctx context.Context, owner string) (*models.Cart, error)
	Set(ctx context.Context, owner string, cart *models.Cart) error
	Delete(ctx context.Context, owner string) error
}

const cartCacheKeyPrefix = "cart_cache:"

// RedisCartCache caches user carts in Redis with a short TTL. Mongo
// stays authoritative; every mutation invalidates the cached copy.
type RedisCartCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartCache(client *redis.Client) *RedisCartCache {
	return &RedisCartCache{
		client: client,
		ttl:    15 * time.Minute,
	}
}

func (c *RedisCartCache) Get(ctx context.Context, owner string) (*models.Cart, error) {
	data, err := c.client.Get(ctx, cartCacheKeyPrefix+owner).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("cache decode failed: %w", err)
	}
	return &cart, nil
}

func (c *RedisCartCache) Set(ctx context.Context, owner string, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}
	if err := c.client.Set(ctx, cartCacheKeyPrefix+owner, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (c *RedisCartCache) Delete(ctx context.Context, owner string) error {
	if err := c.client.Del(ctx, cartCacheKeyPrefix+owner).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}
