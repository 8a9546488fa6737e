package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docregistry/internal/config"
)

// NewRedis parses the configured URL, applies pool settings and verifies the
// connection with a short ping.
func NewRedis(c config.RedisConfig) (*redis.Client, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("invalid redis config: url is required")
	}
	opt, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
