package leaderboardserver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/leaderboard"
	"github.com/clickgame/backend/internal/ranking"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryRepository, *leaderboard.Materializer, *ranking.Index) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := store.NewMemoryRepository()
	materializer := leaderboard.New(repo, time.Minute)
	rank := ranking.New(client)

	return New(repo, materializer, rank), repo, materializer, rank
}

func mustCreateUser(t *testing.T, repo *store.MemoryRepository, externalID int64, name string, clicks int64) id.UserID {
	t.Helper()
	username, err := id.ParseUsername(name)
	require.NoError(t, err)
	user, err := repo.CreateUser(context.Background(), externalID, username)
	require.NoError(t, err)
	if clicks > 0 {
		_, err := repo.BulkIncrement(context.Background(), map[id.UserID]store.Increment{
			user.ID: {Username: username, Count: clicks},
		})
		require.NoError(t, err)
	}
	return user.ID
}

func TestGetLeaderboardServesMaterializedSnapshot(t *testing.T) {
	srv, repo, materializer, _ := newTestServer(t)
	ctx := context.Background()

	mustCreateUser(t, repo, 1, "alice", 30)
	mustCreateUser(t, repo, 2, "bob", 10)
	require.NoError(t, materializer.Refresh(ctx))

	resp, err := srv.GetLeaderboard(ctx, &rpccodec.GetLeaderboardRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	require.Equal(t, "alice", resp.Entries[0].Username)
	require.Equal(t, int32(1), resp.Entries[0].Rank)
}

func TestGetUserRankFallsBackToLiveStoreWhenNotInSnapshot(t *testing.T) {
	srv, repo, materializer, rank := newTestServer(t)
	ctx := context.Background()

	uid := mustCreateUser(t, repo, 3, "carol", 5)
	// The materializer has never refreshed, so carol isn't in the cached
	// top-N; GetUserRank must fall through to the live store + ranking index.
	username, _ := id.ParseUsername("carol")
	require.NoError(t, rank.Update(ctx, uid, username, 5))

	resp, err := srv.GetUserRank(ctx, &rpccodec.GetUserRankRequest{UserID: uid.String()})
	require.NoError(t, err)
	require.True(t, resp.Found)
	require.Equal(t, int64(5), resp.TotalClicks)

	_ = materializer
}

func TestGetUserRankNotFound(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	resp, err := srv.GetUserRank(context.Background(), &rpccodec.GetUserRankRequest{UserID: id.NewUserID().String()})
	require.NoError(t, err)
	require.False(t, resp.Found)
}

func TestGetGlobalStatsCombinesStoreAndSessionCount(t *testing.T) {
	srv, repo, _, _ := newTestServer(t)
	ctx := context.Background()

	mustCreateUser(t, repo, 4, "dave", 8)
	_, err := repo.CreateSession(ctx, mustCreateUser(t, repo, 5, "erin", 2), 1, nil)
	require.NoError(t, err)

	resp, err := srv.GetGlobalStats(ctx, &rpccodec.GetGlobalStatsRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(10), resp.TotalClicks)
	require.Equal(t, int64(2), resp.TotalUsers)
	require.Equal(t, int64(1), resp.ActiveSessions)
}

func TestUpdateUserScoreWritesRankingIndex(t *testing.T) {
	srv, repo, _, rank := newTestServer(t)
	ctx := context.Background()

	uid := mustCreateUser(t, repo, 6, "frank", 0)

	resp, err := srv.UpdateUserScore(ctx, &rpccodec.UpdateUserScoreRequest{UserID: uid.String(), Username: "frank", Score: 99})
	require.NoError(t, err)
	require.True(t, resp.Success)

	r, err := rank.Rank(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, 1, r)
}
