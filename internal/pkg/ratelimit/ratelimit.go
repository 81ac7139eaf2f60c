// Package ratelimit implements a sliding-window counter on Redis, keyed by
// (identifier, action). Used to cap failed-payment checkout attempts per user.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter counts events in a trailing window using a Redis sorted set.
type Limiter struct {
	redis *redis.Client
}

// New creates a Limiter. A nil client is allowed: the limiter then degrades
// open (everything allowed), matching how the rest of the service treats
// Redis as optional in development.
func New(client *redis.Client) *Limiter {
	return &Limiter{redis: client}
}

// Allow reports whether fewer than max events were recorded for
// (identifier, action) within the trailing window.
func (l *Limiter) Allow(ctx context.Context, identifier, action string, window time.Duration, max int64) (bool, error) {
	if l.redis == nil {
		return true, nil
	}

	key := limiterKey(identifier, action)
	cutoff := time.Now().Add(-window).UnixNano()

	pipe := l.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return count.Val() < max, nil
}

// Record adds one event for (identifier, action). The key expires after the
// window so abandoned counters clean themselves up.
func (l *Limiter) Record(ctx context.Context, identifier, action string, window time.Duration) error {
	if l.redis == nil {
		log.Debug().Str("action", action).Msg("rate limiter disabled, event not recorded")
		return nil
	}

	key := limiterKey(identifier, action)
	now := time.Now().UnixNano()

	pipe := l.redis.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: strconv.FormatInt(now, 10) + ":" + uuid.NewString(),
	})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit record failed: %w", err)
	}
	return nil
}

func limiterKey(identifier, action string) string {
	return "ratelimit:" + action + ":" + identifier
}
