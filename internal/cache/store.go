// Package cache provides a redis-backed read cache for rarely changing backend data.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anmoldairy/dairy/internal/config"
)

// Store is a byte-oriented key value cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type redisStore struct {
	client *redis.Client
}

type noopStore struct{}

// NewStore connects to redis when REDIS_URL is configured and falls back to a
// store that never hits otherwise.
func NewStore(cfg config.CacheConfig) (Store, error) {
	if cfg.RedisURL == "" {
		return NewNoopStore(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisStore{client: client}, nil
}

// NewNoopStore returns a store that never hits.
func NewNoopStore() Store {
	return noopStore{}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return payload, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (noopStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (noopStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (noopStore) Delete(context.Context, ...string) error {
	return nil
}
