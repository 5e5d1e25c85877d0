package push

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/rpcpool"
)

var testUserID = id.NewUserID().String()

type fakeGameServer struct {
	userExists bool
}

func (f *fakeGameServer) CreateUser(context.Context, *rpccodec.CreateUserRequest) (*rpccodec.CreateUserResponse, error) {
	return &rpccodec.CreateUserResponse{Success: true}, nil
}
func (f *fakeGameServer) GetUser(ctx context.Context, req *rpccodec.GetUserRequest) (*rpccodec.GetUserResponse, error) {
	return &rpccodec.GetUserResponse{Exists: f.userExists, Username: "alice"}, nil
}
func (f *fakeGameServer) UpdateUsername(context.Context, *rpccodec.UpdateUsernameRequest) (*rpccodec.UpdateUsernameResponse, error) {
	return &rpccodec.UpdateUsernameResponse{Success: true}, nil
}
func (f *fakeGameServer) ProcessClick(ctx context.Context, req *rpccodec.ProcessClickRequest) (*rpccodec.ProcessClickResponse, error) {
	return &rpccodec.ProcessClickResponse{Success: true, NewTotal: 41, CurrentRank: 2}, nil
}
func (f *fakeGameServer) StartSession(context.Context, *rpccodec.StartSessionRequest) (*rpccodec.StartSessionResponse, error) {
	return &rpccodec.StartSessionResponse{Success: true}, nil
}
func (f *fakeGameServer) Heartbeat(context.Context, *rpccodec.HeartbeatRequest) (*rpccodec.HeartbeatResponse, error) {
	return &rpccodec.HeartbeatResponse{Active: true}, nil
}
func (f *fakeGameServer) EndSession(context.Context, *rpccodec.EndSessionRequest) (*rpccodec.EndSessionResponse, error) {
	return &rpccodec.EndSessionResponse{Success: true}, nil
}
func (f *fakeGameServer) GetSessionStats(context.Context, *rpccodec.GetSessionStatsRequest) (*rpccodec.GetSessionStatsResponse, error) {
	return &rpccodec.GetSessionStatsResponse{}, nil
}
func (f *fakeGameServer) GetOrCreateSession(ctx context.Context, req *rpccodec.GetOrCreateSessionRequest) (*rpccodec.GetOrCreateSessionResponse, error) {
	return &rpccodec.GetOrCreateSessionResponse{Success: true, SessionID: "sess-1", StartedAt: 1000}, nil
}

type fakeLeaderboardServer struct{}

func (fakeLeaderboardServer) GetLeaderboard(context.Context, *rpccodec.GetLeaderboardRequest) (*rpccodec.GetLeaderboardResponse, error) {
	return &rpccodec.GetLeaderboardResponse{}, nil
}
func (fakeLeaderboardServer) GetUserRank(context.Context, *rpccodec.GetUserRankRequest) (*rpccodec.GetUserRankResponse, error) {
	return &rpccodec.GetUserRankResponse{Rank: 3, TotalClicks: 50, Found: true}, nil
}
func (fakeLeaderboardServer) GetGlobalStats(context.Context, *rpccodec.GetGlobalStatsRequest) (*rpccodec.GetGlobalStatsResponse, error) {
	return &rpccodec.GetGlobalStatsResponse{}, nil
}
func (fakeLeaderboardServer) UpdateUserScore(context.Context, *rpccodec.UpdateUserScoreRequest) (*rpccodec.UpdateUserScoreResponse, error) {
	return &rpccodec.UpdateUserScoreResponse{}, nil
}

func dialBufconnPool(t *testing.T, register func(*grpc.Server)) *rpcpool.Pool {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	t.Cleanup(func() { _ = lis.Close() })

	grpcServer := grpc.NewServer()
	register(grpcServer)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpccodec.Name)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return rpcpool.WrapConns([]*grpc.ClientConn{conn}, time.Second)
}

func newTestConnection(t *testing.T, gameSrv rpccodec.GameServer) (*websocket.Conn, func()) {
	t.Helper()
	gamePool := dialBufconnPool(t, func(s *grpc.Server) { rpccodec.RegisterGameServer(s, gameSrv) })
	lbPool := dialBufconnPool(t, func(s *grpc.Server) { rpccodec.RegisterLeaderboardServer(s, fakeLeaderboardServer{}) })

	hub := NewHub(nil)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		c := NewConnection(conn, hub, gamePool, lbPool, nil, log.NewNopLogger())
		go func() {
			_ = c.Serve(context.Background())
			conn.Close()
		}()
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + server.URL[len("http"):]
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return clientConn, func() { _ = clientConn.Close() }
}

func TestHandleInitSendsSessionInfoWhenUserExists(t *testing.T) {
	clientConn, closeFn := newTestConnection(t, &fakeGameServer{userExists: true})
	defer closeFn()

	require.NoError(t, clientConn.WriteJSON(Frame{Type: TypeInit, UserID: testUserID, ExternalID: 99}))

	var resp Frame
	require.NoError(t, clientConn.ReadJSON(&resp))
	require.Equal(t, TypeSessionInfo, resp.Type)
	require.Equal(t, "sess-1", resp.SessionID)
}

func TestHandleInitSendsErrorWhenUserNotRegistered(t *testing.T) {
	clientConn, closeFn := newTestConnection(t, &fakeGameServer{userExists: false})
	defer closeFn()

	require.NoError(t, clientConn.WriteJSON(Frame{Type: TypeInit, UserID: testUserID, ExternalID: 99}))

	var resp Frame
	require.NoError(t, clientConn.ReadJSON(&resp))
	require.Equal(t, TypeError, resp.Type)
}

func TestHandleClickSendsScoreUpdate(t *testing.T) {
	clientConn, closeFn := newTestConnection(t, &fakeGameServer{userExists: true})
	defer closeFn()

	require.NoError(t, clientConn.WriteJSON(Frame{Type: TypeClick, UserID: testUserID, ClickCount: 1}))

	var resp Frame
	require.NoError(t, clientConn.ReadJSON(&resp))
	require.Equal(t, TypeScoreUpdate, resp.Type)
	require.Equal(t, int64(41), resp.Score)
	require.Equal(t, int32(2), resp.Rank)
}

func TestHandleRefreshSendsScoreUpdate(t *testing.T) {
	clientConn, closeFn := newTestConnection(t, &fakeGameServer{userExists: true})
	defer closeFn()

	require.NoError(t, clientConn.WriteJSON(Frame{Type: TypeRefresh, UserID: testUserID}))

	var resp Frame
	require.NoError(t, clientConn.ReadJSON(&resp))
	require.Equal(t, TypeScoreUpdate, resp.Type)
	require.Equal(t, int64(50), resp.Score)
	require.Equal(t, int32(3), resp.Rank)
}

func TestMalformedFrameProducesError(t *testing.T) {
	clientConn, closeFn := newTestConnection(t, &fakeGameServer{userExists: true})
	defer closeFn()

	require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var resp Frame
	require.NoError(t, clientConn.ReadJSON(&resp))
	require.Equal(t, TypeError, resp.Type)
}
