package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis returns a client for cfg.RedisAddress, or nil when Redis is
// not configured.
func ConnectRedis(ctx context.Context, cfg *Config, log *zap.Logger) (*redis.Client, error) {
	if cfg.RedisAddress == "" {
		log.Info("redis disabled: rate limiting and cross-instance events are off")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	log.Info("connected to Redis", zap.String("addr", cfg.RedisAddress))
	return client, nil
}
