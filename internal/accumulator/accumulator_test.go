package accumulator

import (
	"context"
	"testing"

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

func TestAccumulateReturnsRunningTotal(t *testing.T) {
	a := New(store.NewMemoryRepository())
	u := id.NewUserID()
	name := mustUsername(t, "alice")

	require.Equal(t, int64(3), a.Accumulate(u, name, 3))
	require.Equal(t, int64(5), a.Accumulate(u, name, 2))
	require.Equal(t, 1, a.Pending())
}

func TestFlushClearsPendingAndAppliesToStore(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	name := mustUsername(t, "alice")

	user, err := repo.CreateUser(ctx, 1, name)
	require.NoError(t, err)

	a := New(repo)
	a.Accumulate(user.ID, name, 4)
	a.Accumulate(user.ID, name, 6)

	result, err := a.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(10), result[user.ID])
	require.Equal(t, 0, a.Pending())

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), got.TotalClicks)
}

func TestFlushOnEmptyAccumulatorIsNoop(t *testing.T) {
	a := New(store.NewMemoryRepository())
	result, err := a.Flush(context.Background())
	require.NoError(t, err)
	require.Empty(t, result)
}

func TestFlushSplitsOversizedBatchesIntoChunks(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	a := New(repo)

	const n = MaxChunk*2 + 7
	ids := make([]id.UserID, 0, n)
	for i := 0; i < n; i++ {
		name := mustUsername(t, "user000")
		u, err := repo.CreateUser(ctx, int64(i+1), name)
		require.NoError(t, err)
		ids = append(ids, u.ID)
		a.Accumulate(u.ID, name, 1)
	}

	result, err := a.Flush(ctx)
	require.NoError(t, err)
	require.Len(t, result, n)
	for _, uid := range ids {
		require.Equal(t, int64(1), result[uid])
	}
}
