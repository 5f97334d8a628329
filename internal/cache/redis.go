// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"socially/internal/middleware"
	"socially/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient builds a Redis client from a host:port address or a redis:// URL
// and attaches the error metrics hook.
func NewClient(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(metricsHook{})
	return rdb, nil
}

// InitRedis connects to addr and returns nil when Redis is unusable. The
// application keeps running without Redis.
func InitRedis(addr string) *redis.Client {
	rdb, err := NewClient(addr)
	if err != nil {
		middleware.Logger.Warn("Redis connection warning: invalid REDIS_URL (continuing without cache)",
			slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis connection warning (continuing without cache)", slog.String("error", err.Error()))
		_ = rdb.Close()
		return nil
	}

	middleware.Logger.Info("Redis connected successfully")
	return rdb
}
