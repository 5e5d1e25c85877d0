package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
)

func newTestLimiter(t *testing.T, maxPerSecond int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, maxPerSecond, time.Second), mr
}

func TestCheckAdmitsUnderLimit(t *testing.T) {
	lim, _ := newTestLimiter(t, 10)
	ctx := context.Background()
	u := id.NewUserID()

	for i := 0; i < 8; i++ {
		require.NoError(t, lim.Check(ctx, u, 1))
	}
}

func TestCheckRejectsOverLimitWithoutDecrementing(t *testing.T) {
	lim, mr := newTestLimiter(t, 10)
	ctx := context.Background()
	u := id.NewUserID()

	err := lim.Check(ctx, u, 11)
	require.Error(t, err)
	require.True(t, apierrors.Is(err, apierrors.RateLimitExceeded))

	// The over-count is absorbed by the window, not rolled back.
	v, err := mr.Get(key(u))
	require.NoError(t, err)
	require.Equal(t, "11", v)
}

func TestCheckSetsTTLOnlyOnFirstIncrement(t *testing.T) {
	lim, mr := newTestLimiter(t, 10)
	ctx := context.Background()
	u := id.NewUserID()

	require.NoError(t, lim.Check(ctx, u, 1))
	require.True(t, mr.TTL(key(u)) > 0)

	mr.SetTTL(key(u), 500*time.Millisecond)
	require.NoError(t, lim.Check(ctx, u, 1))
	// second call must not have reset the TTL back to the full window
	require.True(t, mr.TTL(key(u)) <= 500*time.Millisecond)
}

func TestCheckIsConcurrencySafeAcrossCallers(t *testing.T) {
	lim, _ := newTestLimiter(t, 1000)
	ctx := context.Background()
	u := id.NewUserID()

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			done <- lim.Check(ctx, u, 1)
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}
}
