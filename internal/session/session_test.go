package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/store"
)

func mustUsername(t *testing.T, s string) id.Username {
	t.Helper()
	u, err := id.ParseUsername(s)
	require.NoError(t, err)
	return u
}

func TestGetOrCreateSessionCreatesThenReuses(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, 1, mustUsername(t, "alice"))
	require.NoError(t, err)

	svc := New(repo, time.Minute)

	sess1, reconnect, err := svc.GetOrCreateSession(ctx, u.ID, 100, nil)
	require.NoError(t, err)
	require.False(t, reconnect)

	sess2, reconnect, err := svc.GetOrCreateSession(ctx, u.ID, 100, nil)
	require.NoError(t, err)
	require.True(t, reconnect)
	require.Equal(t, sess1.ID, sess2.ID)
}

func TestGetOrCreateSessionStartsNewAfterTimeout(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, 1, mustUsername(t, "alice"))
	require.NoError(t, err)

	svc := New(repo, time.Millisecond)

	sess1, _, err := svc.GetOrCreateSession(ctx, u.ID, 100, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	sess2, reconnect, err := svc.GetOrCreateSession(ctx, u.ID, 100, nil)
	require.NoError(t, err)
	require.False(t, reconnect)
	require.NotEqual(t, sess1.ID, sess2.ID)
}

func TestGetStatsComputesClicksPerMinute(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, 1, mustUsername(t, "alice"))
	require.NoError(t, err)

	_, err = repo.BulkIncrement(ctx, map[id.UserID]store.Increment{
		u.ID: {Username: u.Username, Count: 120},
	})
	require.NoError(t, err)

	svc := New(repo, time.Minute)
	sess, _, err := svc.GetOrCreateSession(ctx, u.ID, 100, nil)
	require.NoError(t, err)

	repo.SetSessionStartedAt(sess.ID, time.Now().Add(-time.Minute))

	stats, err := svc.GetStats(ctx, sess.ID)
	require.NoError(t, err)
	require.InDelta(t, 60.0, stats.DurationSecs, 1)
	require.InDelta(t, 120.0, stats.ClicksPerMinute, 5)
	require.True(t, stats.IsActive)
}

func TestRunReaperEvictsStaleSessions(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, 1, mustUsername(t, "alice"))
	require.NoError(t, err)

	svc := New(repo, time.Minute)
	sess, _, err := svc.GetOrCreateSession(ctx, u.ID, 1, nil)
	require.NoError(t, err)

	repo.SetSessionHeartbeat(sess.ID, time.Now().Add(-10*time.Minute))

	// exercise the reaper's underlying cleanup logic directly rather than
	// waiting on the real 60s ticker (svc.RunReaper uses the same call).
	n, err := repo.CleanupExpiredSessions(ctx, 5*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}
