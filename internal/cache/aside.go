package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetJSON reads key from Redis into dest. It reports false, nil on a miss or
// when rdb is nil.
func GetJSON(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	s, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key with ttl.
func SetJSON(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// Aside serves dest from Redis, or on a miss calls fetch (which must populate
// dest) and stores the result. Cache errors degrade to calling fetch.
func Aside(ctx context.Context, rdb *redis.Client, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := GetJSON(ctx, rdb, key, dest); err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, rdb, key, dest, ttl)
	return nil
}
