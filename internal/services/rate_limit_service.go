package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fieldops/dcinstall-api/pkg/logger"
)

// RateLimiter throttles repeated failed logins per key (email or IP).
type RateLimiter interface {
	IsBlocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// redisRateLimiter counts failures in Redis with a rolling window and
// blocks a key once the limit is hit.
type redisRateLimiter struct {
	client   *redis.Client
	limit    int
	blockFor time.Duration
}

// NewRedisRateLimiter connects to Redis and returns a limiter. Pass an
// empty URL to disable limiting entirely (a noop limiter is returned).
func NewRedisRateLimiter(redisURL string, limit int, blockFor time.Duration) (RateLimiter, error) {
	if redisURL == "" {
		logger.Info("Login rate limiting disabled")
		return &noopRateLimiter{}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Login rate limiting enabled", "limit", limit, "block_for", blockFor)
	return &redisRateLimiter{client: client, limit: limit, blockFor: blockFor}, nil
}

func (r *redisRateLimiter) IsBlocked(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Get(ctx, failureKey(key)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= r.limit, nil
}

func (r *redisRateLimiter) RecordFailure(ctx context.Context, key string) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, failureKey(key))
	pipe.Expire(ctx, failureKey(key), r.blockFor)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, failureKey(key)).Err()
}

func failureKey(key string) string {
	return "login_failures:" + key
}

// noopRateLimiter never blocks. Used when Redis is not configured.
type noopRateLimiter struct{}

func (noopRateLimiter) IsBlocked(ctx context.Context, key string) (bool, error) { return false, nil }
func (noopRateLimiter) RecordFailure(ctx context.Context, key string) error     { return nil }
func (noopRateLimiter) Reset(ctx context.Context, key string) error             { return nil }
