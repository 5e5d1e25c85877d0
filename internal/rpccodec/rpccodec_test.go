package rpccodec

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func TestCodecRoundTrips(t *testing.T) {
	c := NewCodec()
	req := &CreateUserRequest{ExternalID: 7, Username: "alice"}

	data, err := c.Marshal(req)
	require.NoError(t, err)

	var out CreateUserRequest
	require.NoError(t, c.Unmarshal(data, &out))
	require.Equal(t, *req, out)
}

type stubGameServer struct{}

func (stubGameServer) CreateUser(ctx context.Context, req *CreateUserRequest) (*CreateUserResponse, error) {
	return &CreateUserResponse{UserID: "u1", Username: req.Username, Success: true}, nil
}
func (stubGameServer) GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error) {
	return &GetUserResponse{Exists: true}, nil
}
func (stubGameServer) UpdateUsername(context.Context, *UpdateUsernameRequest) (*UpdateUsernameResponse, error) {
	return &UpdateUsernameResponse{Success: true}, nil
}
func (stubGameServer) ProcessClick(context.Context, *ProcessClickRequest) (*ProcessClickResponse, error) {
	return &ProcessClickResponse{Success: true}, nil
}
func (stubGameServer) StartSession(context.Context, *StartSessionRequest) (*StartSessionResponse, error) {
	return &StartSessionResponse{Success: true}, nil
}
func (stubGameServer) Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error) {
	return &HeartbeatResponse{Active: true}, nil
}
func (stubGameServer) EndSession(context.Context, *EndSessionRequest) (*EndSessionResponse, error) {
	return &EndSessionResponse{Success: true}, nil
}
func (stubGameServer) GetSessionStats(context.Context, *GetSessionStatsRequest) (*GetSessionStatsResponse, error) {
	return &GetSessionStatsResponse{}, nil
}
func (stubGameServer) GetOrCreateSession(context.Context, *GetOrCreateSessionRequest) (*GetOrCreateSessionResponse, error) {
	return &GetOrCreateSessionResponse{Success: true}, nil
}

var _ GameServer = stubGameServer{}

func TestRegisterGameServerServesOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	t.Cleanup(func() { _ = lis.Close() })

	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryTimeout(time.Second)))
	RegisterGameServer(srv, stubGameServer{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(Name)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := NewGameServiceClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.CreateUser(ctx, &CreateUserRequest{ExternalID: 1, Username: "bob"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "bob", resp.Username)
}
