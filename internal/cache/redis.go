// Package cache is a read-through Redis cache for public-view slug
// lookups. It is strictly an accelerator: every failure here degrades
// to the repository and is never surfaced to the user.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/countdown-qr/internal/config"
	"github.com/darkodi/countdown-qr/internal/model"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func key(publicSlug string) string {
	return "countdown:slug:" + publicSlug
}

func (c *RedisCache) GetCountdown(ctx context.Context, publicSlug string) (*model.Countdown, error) {
	raw, err := c.client.Get(ctx, key(publicSlug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var cd model.Countdown
	if err := json.Unmarshal(raw, &cd); err != nil {
		// Treat an undecodable entry as a miss; it will be overwritten.
		return nil, ErrCacheMiss
	}
	return &cd, nil
}

func (c *RedisCache) SetCountdown(ctx context.Context, cd *model.Countdown) error {
	raw, err := json.Marshal(cd)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(cd.PublicSlug), raw, c.ttl).Err()
}

// Invalidate drops the cached entry after an update or delete.
func (c *RedisCache) Invalidate(ctx context.Context, publicSlug string) error {
	return c.client.Del(ctx, key(publicSlug)).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
