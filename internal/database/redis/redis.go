// Package redis manages the connection to Redis, which backs the document
// registry of the knowledge base.
package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"taxkb/internal/config"
)

// NewClient connects to Redis and verifies the connection with a ping. The
// returned client is constructed once at process start and shared by
// reference; callers close it at shutdown.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}
	return rdb, nil
}
