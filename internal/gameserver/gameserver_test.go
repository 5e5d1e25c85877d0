package gameserver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/ranking"
	"github.com/clickgame/backend/internal/ratelimit"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/session"
	"github.com/clickgame/backend/internal/shardacc"
	"github.com/clickgame/backend/internal/store"
	"github.com/clickgame/backend/internal/telemetry"
)

// testMetrics is shared: NewMetrics registers on the default Prometheus
// registry, which rejects a second registration of the same metrics.
var testMetrics = telemetry.NewMetrics()

func newTestServer(t *testing.T) (*Server, *store.MemoryRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := store.NewMemoryRepository()
	limiter := ratelimit.New(client, 100, time.Second)
	acc := shardacc.New(client, repo, 0, nil)
	sessions := session.New(repo, time.Minute)
	rank := ranking.New(client)

	return New(repo, limiter, acc, sessions, rank, testMetrics, telemetry.NewLogger("test")), repo
}

func TestCreateUserAndGetUser(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	created, err := srv.CreateUser(ctx, &rpccodec.CreateUserRequest{ExternalID: 42, Username: "alice"})
	require.NoError(t, err)
	require.True(t, created.Success)
	require.Equal(t, "alice", created.Username)

	got, err := srv.GetUser(ctx, &rpccodec.GetUserRequest{ExternalID: 42})
	require.NoError(t, err)
	require.True(t, got.Exists)
	require.Equal(t, created.UserID, got.UserID)
}

func TestCreateUserRejectsDuplicateExternalID(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := srv.CreateUser(ctx, &rpccodec.CreateUserRequest{ExternalID: 1, Username: "bob"})
	require.NoError(t, err)

	resp, err := srv.CreateUser(ctx, &rpccodec.CreateUserRequest{ExternalID: 1, Username: "bobby"})
	require.NoError(t, err)
	require.False(t, resp.Success)
}

func TestGetUserNotFoundReportsExistsFalse(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.GetUser(context.Background(), &rpccodec.GetUserRequest{ExternalID: 999})
	require.NoError(t, err)
	require.False(t, resp.Exists)
}

func TestProcessClickAccumulatesOptimisticTotal(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	created, err := srv.CreateUser(ctx, &rpccodec.CreateUserRequest{ExternalID: 7, Username: "carol"})
	require.NoError(t, err)

	resp, err := srv.ProcessClick(ctx, &rpccodec.ProcessClickRequest{UserID: created.UserID, ClickCount: 3})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, int64(3), resp.NewTotal)
	require.Zero(t, resp.SessionClicks)
}

func TestProcessClickRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	created, err := srv.CreateUser(ctx, &rpccodec.CreateUserRequest{ExternalID: 8, Username: "dave"})
	require.NoError(t, err)

	resp, err := srv.ProcessClick(ctx, &rpccodec.ProcessClickRequest{UserID: created.UserID, ClickCount: 1000})
	require.NoError(t, err)
	require.True(t, resp.RateLimited)
}

func TestGetOrCreateSessionThenHeartbeatAndEndSession(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	created, err := srv.CreateUser(ctx, &rpccodec.CreateUserRequest{ExternalID: 9, Username: "erin"})
	require.NoError(t, err)

	sessResp, err := srv.GetOrCreateSession(ctx, &rpccodec.GetOrCreateSessionRequest{UserID: created.UserID, ChatID: 555})
	require.NoError(t, err)
	require.True(t, sessResp.Success)
	require.False(t, sessResp.IsReconnection)

	hb, err := srv.Heartbeat(ctx, &rpccodec.HeartbeatRequest{SessionID: sessResp.SessionID})
	require.NoError(t, err)
	require.True(t, hb.Active)

	end, err := srv.EndSession(ctx, &rpccodec.EndSessionRequest{SessionID: sessResp.SessionID})
	require.NoError(t, err)
	require.True(t, end.Success)

	hb, err = srv.Heartbeat(ctx, &rpccodec.HeartbeatRequest{SessionID: sessResp.SessionID})
	require.NoError(t, err)
	require.False(t, hb.Active)
}

func TestUpdateUsernameRejectsInvalidName(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	created, err := srv.CreateUser(ctx, &rpccodec.CreateUserRequest{ExternalID: 10, Username: "frank"})
	require.NoError(t, err)

	_, err = srv.UpdateUsername(ctx, &rpccodec.UpdateUsernameRequest{UserID: created.UserID, NewUsername: "x"})
	require.Error(t, err)
	require.True(t, apierrors.Is(err, apierrors.InvalidUsername))
}
