package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cuentia/server/internal/shared/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to redis.
// It returns a nil client when no address is configured; callers treat that as "redis disabled".
func NewRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if cfg.Address == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}

	return client, nil
}

// Close closes the Redis client. A nil client is a no-op.
func Close(client redis.UniversalClient) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
