package cache

import (
	"context"
	"log/slog"
	"time"

	"socially/internal/middleware"
	"socially/internal/observability"

	"github.com/redis/go-redis/v9"
)

const invalidateTimeout = 2 * time.Second

// ViewInvalidator drops cached read views after a write. Failures are logged
// and counted; they never fail the write that triggered them.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// NewViewInvalidator returns a Redis-backed invalidator, or a no-op one when
// rdb is nil.
func NewViewInvalidator(rdb *redis.Client) ViewInvalidator {
	if rdb == nil {
		return nopInvalidator{}
	}
	return &redisInvalidator{rdb: rdb}
}

type redisInvalidator struct {
	rdb *redis.Client
}

func (r *redisInvalidator) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	// The write has already committed; a cancelled request must not skip this.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		observability.ViewInvalidations.WithLabelValues(observability.OutcomeFailure).Inc()
		middleware.Logger.WarnContext(ctx, "view invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
		return
	}
	observability.ViewInvalidations.WithLabelValues(observability.OutcomeSuccess).Add(float64(len(keys)))
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, ...string) {}
