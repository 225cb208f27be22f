package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/metrics"
)

const defaultRedisPrefix = "exchangebot:session:"

// RedisStore keeps sessions as JSON values whose TTL equals the idle
// timeout, so Redis performs eviction itself.
type RedisStore[S any] struct {
	client redis.UniversalClient
	opts   Options
	prefix string
}

// NewRedisStore returns a Store backed by client. The client stays owned by the caller.
func NewRedisStore[S any](client redis.UniversalClient, opts Options, prefix string) *RedisStore[S] {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore[S]{client: client, opts: opts, prefix: prefix}
}

func (r *RedisStore[S]) key(id int64) string {
	return r.prefix + strconv.FormatInt(id, 10)
}

// Get returns the stored session or a fresh idle one.
func (r *RedisStore[S]) Get(ctx context.Context, id int64) (*Session[S], error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession[S](id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: redis get %d: %w", id, err)
	}
	s, err := decode[S](data)
	if err != nil {
		return nil, err
	}
	if r.opts.expired(s.UpdatedAt) {
		if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
			logger.Warn(ctx, "redis", "session.expire",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}
		metrics.SessionsEvicted.WithLabelValues("redis").Inc()
		return NewSession[S](id), nil
	}
	return s, nil
}

// Save stores s with a TTL of the idle timeout, or deletes it when no
// conversation is active.
func (r *RedisStore[S]) Save(ctx context.Context, s *Session[S]) error {
	if !s.Active() {
		return r.Clear(ctx, s.ID)
	}
	s.UpdatedAt = r.opts.now()
	data, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.opts.IdleTimeout).Err(); err != nil {
		return fmt.Errorf("state: redis set %d: %w", s.ID, err)
	}
	return nil
}

// Clear deletes the session of id.
func (r *RedisStore[S]) Clear(ctx context.Context, id int64) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("state: redis del %d: %w", id, err)
	}
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (r *RedisStore[S]) Close() error {
	return nil
}
