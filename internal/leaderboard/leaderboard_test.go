package leaderboard

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

func TestCurrentBeforeFirstRefreshIsEmpty(t *testing.T) {
	m := New(store.NewMemoryRepository(), time.Second)
	snap := m.Current()
	require.NotNil(t, snap)
	require.Empty(t, snap.Rows)
}

func TestRefreshPublishesDenseRankedSnapshot(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()

	alice, err := repo.CreateUser(ctx, 1, mustUsername(t, "alice"))
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, 2, mustUsername(t, "bob"))
	require.NoError(t, err)

	_, err = repo.BulkIncrement(ctx, map[id.UserID]store.Increment{
		alice.ID: {Username: alice.Username, Count: 10},
		bob.ID:   {Username: bob.Username, Count: 5},
	})
	require.NoError(t, err)

	m := New(repo, time.Second)
	require.NoError(t, m.Refresh(ctx))

	snap := m.Current()
	require.Len(t, snap.Rows, 2)
	require.Equal(t, alice.ID, snap.Rows[0].UserID)
	require.Equal(t, 1, snap.Rows[0].Rank)

	row, ok := snap.RankOf(bob.ID)
	require.True(t, ok)
	require.Equal(t, 2, row.Rank)

	_, ok = snap.RankOf(id.NewUserID())
	require.False(t, ok)
}

func TestRunRefreshesOnTickerUntilCanceled(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, 1, mustUsername(t, "alice"))
	require.NoError(t, err)
	_, err = repo.BulkIncrement(ctx, map[id.UserID]store.Increment{u.ID: {Username: u.Username, Count: 1}})
	require.NoError(t, err)

	m := New(repo, 10*time.Millisecond)
	runCtx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go func() {
		m.Run(runCtx, nil)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(m.Current().Rows) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
