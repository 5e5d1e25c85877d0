// Package ratelimit enforces the per-user clicks-per-second ceiling,
// implemented with a shared Redis counter so that any front-end instance
// sees the same 1-second window for a given user.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
)

const window = time.Second

// Limiter checks a shared, 1-second fixed-window counter per user.
type Limiter struct {
	client       redis.UniversalClient
	maxPerSecond int64
	timeout      time.Duration
}

// New builds a Limiter against client, admitting up to maxPerSecond clicks
// per user per second.
func New(client redis.UniversalClient, maxPerSecond int, timeout time.Duration) *Limiter {
	return &Limiter{client: client, maxPerSecond: int64(maxPerSecond), timeout: timeout}
}

func key(user id.UserID) string {
	return fmt.Sprintf("rate_limit:%s", user)
}

// Check admits n clicks for user, or returns an *apierrors.Error of kind
// RateLimitExceeded. The increment is never rolled back on rejection —
// the over-count self-heals when the window's TTL expires.
func (l *Limiter) Check(ctx context.Context, user id.UserID, n int64) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	count, err := l.client.IncrBy(ctx, key(user), n).Result()
	if err != nil {
		return apierrors.Wrap(apierrors.Staging, "rate limit counter unavailable", err)
	}

	if count == n {
		// 0 -> n transition: this call created the window, start its TTL.
		if err := l.client.Expire(ctx, key(user), window).Err(); err != nil {
			return apierrors.Wrap(apierrors.Staging, "rate limit TTL unavailable", err)
		}
	}

	if count > l.maxPerSecond {
		return apierrors.New(apierrors.RateLimitExceeded, "click rate limit exceeded")
	}

	return nil
}
