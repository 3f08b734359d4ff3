// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"fleet-assistant/internal/common/config"
	"fleet-assistant/internal/common/kv"

	"github.com/redis/go-redis/v9"
)

// RedisClient holds the connection backing session ids, the local
// conversation store and consent preferences.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds a pooled client. It does not dial until first use.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 20
	}
	dialTimeout := config.GetDuration(cfg.DialTimeout)
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	return &RedisClient{Client: rdb}, nil
}

// Backend exposes the client as the string key/value store used by the chat packages.
func (c *RedisClient) Backend() kv.Backend {
	return kv.NewRedisBackend(c.Client)
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
