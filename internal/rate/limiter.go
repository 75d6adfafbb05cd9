package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds refresh throttle tuning parameters.
type Config struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
	Prefix           string
}

// Limiter enforces per-record and per-IP refresh attempt budgets using
// fixed-window Redis counters. It exists to blunt brute-force guessing of
// refresh secrets; well-behaved clients coordinate refreshes and stay far
// below the budget.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ash"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) recordKey(recordID string) string {
	return l.config.Prefix + ":ar:" + recordID
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + ":ari:" + ip
}

// CheckRefresh counts one refresh attempt against the record and, when IP
// throttling is on, against the caller's IP. Returns ErrRateLimited once
// either window is exhausted.
func (l *Limiter) CheckRefresh(ctx context.Context, recordID, ip string) error {
	if !l.config.Enabled {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.recordKey(recordID), l.config.Cooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.ipKey(ip), l.config.Cooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// Reset clears the record counter after a successful rotation so legitimate
// steady traffic never accumulates towards the budget. The IP window is left
// to decay on its own.
func (l *Limiter) Reset(ctx context.Context, recordID string) error {
	if !l.config.Enabled {
		return nil
	}
	if err := l.redis.Del(ctx, l.recordKey(recordID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Attempts returns the current attempt count for a record. Missing keys
// report zero.
func (l *Limiter) Attempts(ctx context.Context, recordID string) (int, error) {
	count, err := l.redis.Get(ctx, l.recordKey(recordID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count, nil
}
