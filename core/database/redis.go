package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/exchangebot/core/logger"
)

// ConnectRedis creates a client for cfg and verifies it with PING.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Error(ctx, "redis", "redis.connect",
			slog.String("status", "fail"),
			slog.String("host", cfg.Addr),
			logger.Err(err),
		)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info(ctx, "redis", "redis.connect",
		slog.String("status", "ok"),
		slog.String("host", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", logger.Took(start)),
	)
	return client, nil
}
