package rpccodec

import (
	"context"

	"google.golang.org/grpc"
)

// GameServer is the handler set behind GameService, the
// interface internal/gameserver implements and internal/rpcpool dials
// against as a client.
type GameServer interface {
	CreateUser(context.Context, *CreateUserRequest) (*CreateUserResponse, error)
	GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error)
	UpdateUsername(context.Context, *UpdateUsernameRequest) (*UpdateUsernameResponse, error)
	ProcessClick(context.Context, *ProcessClickRequest) (*ProcessClickResponse, error)
	StartSession(context.Context, *StartSessionRequest) (*StartSessionResponse, error)
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	EndSession(context.Context, *EndSessionRequest) (*EndSessionResponse, error)
	GetSessionStats(context.Context, *GetSessionStatsRequest) (*GetSessionStatsResponse, error)
	GetOrCreateSession(context.Context, *GetOrCreateSessionRequest) (*GetOrCreateSessionResponse, error)
}

// LeaderboardServer is the handler set behind LeaderboardService.
type LeaderboardServer interface {
	GetLeaderboard(context.Context, *GetLeaderboardRequest) (*GetLeaderboardResponse, error)
	GetUserRank(context.Context, *GetUserRankRequest) (*GetUserRankResponse, error)
	GetGlobalStats(context.Context, *GetGlobalStatsRequest) (*GetGlobalStatsResponse, error)
	UpdateUserScore(context.Context, *UpdateUserScoreRequest) (*UpdateUserScoreResponse, error)
}

func unaryHandler[Req, Resp any](call func(context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// GameServiceName is the fully-qualified gRPC service name dialed by
// internal/rpcpool and bound by cmd/gameservice.
const GameServiceName = "clickgame.GameService"

// GameServiceDesc hand-declares the method table protoc-gen-go-grpc would
// otherwise generate from a .proto file, since no protoc invocation is
// available in this build.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: GameServiceName,
	HandlerType: (*GameServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateUser", Handler: gameCreateUserHandler},
		{MethodName: "GetUser", Handler: gameGetUserHandler},
		{MethodName: "UpdateUsername", Handler: gameUpdateUsernameHandler},
		{MethodName: "ProcessClick", Handler: gameProcessClickHandler},
		{MethodName: "StartSession", Handler: gameStartSessionHandler},
		{MethodName: "Heartbeat", Handler: gameHeartbeatHandler},
		{MethodName: "EndSession", Handler: gameEndSessionHandler},
		{MethodName: "GetSessionStats", Handler: gameGetSessionStatsHandler},
		{MethodName: "GetOrCreateSession", Handler: gameGetOrCreateSessionHandler},
	},
	Metadata: "gameservice.proto",
}

func gameCreateUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).CreateUser)(srv, ctx, dec, interceptor)
}

func gameGetUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).GetUser)(srv, ctx, dec, interceptor)
}

func gameUpdateUsernameHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).UpdateUsername)(srv, ctx, dec, interceptor)
}

func gameProcessClickHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).ProcessClick)(srv, ctx, dec, interceptor)
}

func gameStartSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).StartSession)(srv, ctx, dec, interceptor)
}

func gameHeartbeatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).Heartbeat)(srv, ctx, dec, interceptor)
}

func gameEndSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).EndSession)(srv, ctx, dec, interceptor)
}

func gameGetSessionStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).GetSessionStats)(srv, ctx, dec, interceptor)
}

func gameGetOrCreateSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(GameServer).GetOrCreateSession)(srv, ctx, dec, interceptor)
}

// RegisterGameServer binds srv's methods to s under GameServiceDesc.
func RegisterGameServer(s grpc.ServiceRegistrar, srv GameServer) {
	s.RegisterService(&GameServiceDesc, srv)
}

// LeaderboardServiceName is the fully-qualified gRPC service name.
const LeaderboardServiceName = "clickgame.LeaderboardService"

// LeaderboardServiceDesc hand-declares LeaderboardService's method table.
var LeaderboardServiceDesc = grpc.ServiceDesc{
	ServiceName: LeaderboardServiceName,
	HandlerType: (*LeaderboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetLeaderboard", Handler: leaderboardGetLeaderboardHandler},
		{MethodName: "GetUserRank", Handler: leaderboardGetUserRankHandler},
		{MethodName: "GetGlobalStats", Handler: leaderboardGetGlobalStatsHandler},
		{MethodName: "UpdateUserScore", Handler: leaderboardUpdateUserScoreHandler},
	},
	Metadata: "leaderboardservice.proto",
}

func leaderboardGetLeaderboardHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(LeaderboardServer).GetLeaderboard)(srv, ctx, dec, interceptor)
}

func leaderboardGetUserRankHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(LeaderboardServer).GetUserRank)(srv, ctx, dec, interceptor)
}

func leaderboardGetGlobalStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(LeaderboardServer).GetGlobalStats)(srv, ctx, dec, interceptor)
}

func leaderboardUpdateUserScoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unaryHandler(srv.(LeaderboardServer).UpdateUserScore)(srv, ctx, dec, interceptor)
}

// RegisterLeaderboardServer binds srv's methods to s under LeaderboardServiceDesc.
func RegisterLeaderboardServer(s grpc.ServiceRegistrar, srv LeaderboardServer) {
	s.RegisterService(&LeaderboardServiceDesc, srv)
}

// NewGameServiceClient builds a thin client stub over conn, invoking each
// method by its fully-qualified path the way protoc-gen-go-grpc's
// generated client would, but hand-written since nothing was generated.
func NewGameServiceClient(conn grpc.ClientConnInterface) GameServiceClient {
	return &gameServiceClient{conn: conn}
}

// GameServiceClient is the client stub internal/rpcpool hands back to
// callers that want to invoke GameService.
type GameServiceClient interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*CreateUserResponse, error)
	GetUser(ctx context.Context, req *GetUserRequest) (*GetUserResponse, error)
	UpdateUsername(ctx context.Context, req *UpdateUsernameRequest) (*UpdateUsernameResponse, error)
	ProcessClick(ctx context.Context, req *ProcessClickRequest) (*ProcessClickResponse, error)
	StartSession(ctx context.Context, req *StartSessionRequest) (*StartSessionResponse, error)
	Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error)
	EndSession(ctx context.Context, req *EndSessionRequest) (*EndSessionResponse, error)
	GetSessionStats(ctx context.Context, req *GetSessionStatsRequest) (*GetSessionStatsResponse, error)
	GetOrCreateSession(ctx context.Context, req *GetOrCreateSessionRequest) (*GetOrCreateSessionResponse, error)
}

type gameServiceClient struct {
	conn grpc.ClientConnInterface
}

func (c *gameServiceClient) method(name string) string {
	return "/" + GameServiceName + "/" + name
}

func (c *gameServiceClient) CreateUser(ctx context.Context, req *CreateUserRequest) (*CreateUserResponse, error) {
	resp := new(CreateUserResponse)
	if err := c.conn.Invoke(ctx, c.method("CreateUser"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) GetUser(ctx context.Context, req *GetUserRequest) (*GetUserResponse, error) {
	resp := new(GetUserResponse)
	if err := c.conn.Invoke(ctx, c.method("GetUser"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) UpdateUsername(ctx context.Context, req *UpdateUsernameRequest) (*UpdateUsernameResponse, error) {
	resp := new(UpdateUsernameResponse)
	if err := c.conn.Invoke(ctx, c.method("UpdateUsername"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) ProcessClick(ctx context.Context, req *ProcessClickRequest) (*ProcessClickResponse, error) {
	resp := new(ProcessClickResponse)
	if err := c.conn.Invoke(ctx, c.method("ProcessClick"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) StartSession(ctx context.Context, req *StartSessionRequest) (*StartSessionResponse, error) {
	resp := new(StartSessionResponse)
	if err := c.conn.Invoke(ctx, c.method("StartSession"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	resp := new(HeartbeatResponse)
	if err := c.conn.Invoke(ctx, c.method("Heartbeat"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) EndSession(ctx context.Context, req *EndSessionRequest) (*EndSessionResponse, error) {
	resp := new(EndSessionResponse)
	if err := c.conn.Invoke(ctx, c.method("EndSession"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) GetSessionStats(ctx context.Context, req *GetSessionStatsRequest) (*GetSessionStatsResponse, error) {
	resp := new(GetSessionStatsResponse)
	if err := c.conn.Invoke(ctx, c.method("GetSessionStats"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *gameServiceClient) GetOrCreateSession(ctx context.Context, req *GetOrCreateSessionRequest) (*GetOrCreateSessionResponse, error) {
	resp := new(GetOrCreateSessionResponse)
	if err := c.conn.Invoke(ctx, c.method("GetOrCreateSession"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// NewLeaderboardServiceClient builds a thin client stub over conn.
func NewLeaderboardServiceClient(conn grpc.ClientConnInterface) LeaderboardServiceClient {
	return &leaderboardServiceClient{conn: conn}
}

// LeaderboardServiceClient is the client stub for LeaderboardService.
type LeaderboardServiceClient interface {
	GetLeaderboard(ctx context.Context, req *GetLeaderboardRequest) (*GetLeaderboardResponse, error)
	GetUserRank(ctx context.Context, req *GetUserRankRequest) (*GetUserRankResponse, error)
	GetGlobalStats(ctx context.Context, req *GetGlobalStatsRequest) (*GetGlobalStatsResponse, error)
	UpdateUserScore(ctx context.Context, req *UpdateUserScoreRequest) (*UpdateUserScoreResponse, error)
}

type leaderboardServiceClient struct {
	conn grpc.ClientConnInterface
}

func (c *leaderboardServiceClient) method(name string) string {
	return "/" + LeaderboardServiceName + "/" + name
}

func (c *leaderboardServiceClient) GetLeaderboard(ctx context.Context, req *GetLeaderboardRequest) (*GetLeaderboardResponse, error) {
	resp := new(GetLeaderboardResponse)
	if err := c.conn.Invoke(ctx, c.method("GetLeaderboard"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *leaderboardServiceClient) GetUserRank(ctx context.Context, req *GetUserRankRequest) (*GetUserRankResponse, error) {
	resp := new(GetUserRankResponse)
	if err := c.conn.Invoke(ctx, c.method("GetUserRank"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *leaderboardServiceClient) GetGlobalStats(ctx context.Context, req *GetGlobalStatsRequest) (*GetGlobalStatsResponse, error) {
	resp := new(GetGlobalStatsResponse)
	if err := c.conn.Invoke(ctx, c.method("GetGlobalStats"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *leaderboardServiceClient) UpdateUserScore(ctx context.Context, req *UpdateUserScoreRequest) (*UpdateUserScoreResponse, error) {
	resp := new(UpdateUserScoreResponse)
	if err := c.conn.Invoke(ctx, c.method("UpdateUserScore"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
