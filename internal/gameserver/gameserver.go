// Package gameserver implements the game-service gRPC handlers for user
// registration, click submission, and session management, wired against
// ratelimit, shardacc, ranking, session, and store.
package gameserver

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/ranking"
	"github.com/clickgame/backend/internal/ratelimit"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/session"
	"github.com/clickgame/backend/internal/shardacc"
	"github.com/clickgame/backend/internal/store"
	"github.com/clickgame/backend/internal/telemetry"
)

// Server implements rpccodec.GameServer.
type Server struct {
	repo     store.Repository
	limiter  *ratelimit.Limiter
	acc      *shardacc.Accumulator
	sessions *session.Service
	rank     *ranking.Index
	metrics  *telemetry.Metrics
	logger   log.Logger
}

func New(repo store.Repository, limiter *ratelimit.Limiter, acc *shardacc.Accumulator, sessions *session.Service, rank *ranking.Index, metrics *telemetry.Metrics, logger log.Logger) *Server {
	return &Server{repo: repo, limiter: limiter, acc: acc, sessions: sessions, rank: rank, metrics: metrics, logger: logger}
}

func (s *Server) CreateUser(ctx context.Context, req *rpccodec.CreateUserRequest) (*rpccodec.CreateUserResponse, error) {
	username, err := id.ParseUsername(req.Username)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.InvalidUsername, "invalid username", err)
	}

	user, err := s.repo.CreateUser(ctx, req.ExternalID, username)
	if apierrors.Is(err, apierrors.UserAlreadyExists) {
		return &rpccodec.CreateUserResponse{Success: false, Message: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	return &rpccodec.CreateUserResponse{
		UserID:      user.ID.String(),
		Username:    user.Username.String(),
		TotalClicks: user.TotalClicks,
		Success:     true,
		Message:     "user created",
	}, nil
}

func (s *Server) GetUser(ctx context.Context, req *rpccodec.GetUserRequest) (*rpccodec.GetUserResponse, error) {
	user, err := s.repo.GetUserByExternalID(ctx, req.ExternalID)
	if apierrors.Is(err, apierrors.UserNotFound) {
		return &rpccodec.GetUserResponse{ExternalID: req.ExternalID, Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rpccodec.GetUserResponse{
		UserID:      user.ID.String(),
		ExternalID:  user.ExternalID,
		Username:    user.Username.String(),
		TotalClicks: user.TotalClicks,
		Exists:      true,
	}, nil
}

func (s *Server) UpdateUsername(ctx context.Context, req *rpccodec.UpdateUsernameRequest) (*rpccodec.UpdateUsernameResponse, error) {
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid user id", err)
	}
	username, err := id.ParseUsername(req.NewUsername)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.InvalidUsername, "invalid username", err)
	}

	user, err := s.repo.UpdateUsername(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	return &rpccodec.UpdateUsernameResponse{Success: true, Message: "username updated", Username: user.Username.String()}, nil
}

// ProcessClick admits the click through the rate limiter, stages it into
// the shared shard accumulator, and replies with an optimistic new total —
// the durable total and ranking index converge on the next flush/consumer
// cycle. session_clicks is left at zero: per-session totals are a
// reserved field unused in the hot path.
func (s *Server) ProcessClick(ctx context.Context, req *rpccodec.ProcessClickRequest) (*rpccodec.ProcessClickResponse, error) {
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid user id", err)
	}

	n := req.ClickCount
	if n <= 0 {
		n = 1
	}

	if err := s.limiter.Check(ctx, userID, n); err != nil {
		if apierrors.Is(err, apierrors.RateLimitExceeded) {
			if s.metrics != nil {
				s.metrics.ClicksRejected.Add(float64(n))
			}
			return &rpccodec.ProcessClickResponse{RateLimited: true, Message: err.Error()}, nil
		}
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.acc.Accumulate(ctx, userID, user.Username, n); err != nil {
		level.Error(s.logger).Log("msg", "shard accumulate failed", "user", userID, "err", err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ClicksAdmitted.Add(float64(n))
	}

	var rank int32
	if s.rank != nil {
		if r, err := s.rank.Rank(ctx, userID); err == nil {
			rank = int32(r)
		}
	}

	return &rpccodec.ProcessClickResponse{
		NewTotal:    user.TotalClicks + n,
		CurrentRank: rank,
		Success:     true,
		Message:     "click accepted",
	}, nil
}

func (s *Server) StartSession(ctx context.Context, req *rpccodec.StartSessionRequest) (*rpccodec.StartSessionResponse, error) {
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid user id", err)
	}

	sess, err := s.repo.CreateSession(ctx, userID, req.ChatID, req.MessageID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &rpccodec.StartSessionResponse{
		SessionID:   sess.ID.String(),
		Success:     true,
		TotalClicks: user.TotalClicks,
		StartedAt:   sess.StartedAt.UnixMilli(),
	}, nil
}

func (s *Server) Heartbeat(ctx context.Context, req *rpccodec.HeartbeatRequest) (*rpccodec.HeartbeatResponse, error) {
	sessionID, err := id.ParseSessionID(req.SessionID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid session id", err)
	}

	sess, err := s.sessions.Heartbeat(ctx, sessionID)
	if apierrors.Is(err, apierrors.SessionNotFound) {
		return &rpccodec.HeartbeatResponse{Active: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rpccodec.HeartbeatResponse{Active: sess.IsActive}, nil
}

func (s *Server) EndSession(ctx context.Context, req *rpccodec.EndSessionRequest) (*rpccodec.EndSessionResponse, error) {
	sessionID, err := id.ParseSessionID(req.SessionID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid session id", err)
	}
	if err := s.sessions.EndSession(ctx, sessionID); err != nil {
		return &rpccodec.EndSessionResponse{Success: false}, err
	}
	return &rpccodec.EndSessionResponse{Success: true}, nil
}

func (s *Server) GetSessionStats(ctx context.Context, req *rpccodec.GetSessionStatsRequest) (*rpccodec.GetSessionStatsResponse, error) {
	sessionID, err := id.ParseSessionID(req.SessionID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid session id", err)
	}

	stats, err := s.sessions.GetStats(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &rpccodec.GetSessionStatsResponse{
		TotalClicks:     stats.TotalClicks,
		DurationSecs:    stats.DurationSecs,
		ClicksPerMinute: stats.ClicksPerMinute,
		IsActive:        stats.IsActive,
	}
	if stats.EndedAt != nil {
		ms := stats.EndedAt.UnixMilli()
		resp.EndedAt = &ms
	}
	return resp, nil
}

func (s *Server) GetOrCreateSession(ctx context.Context, req *rpccodec.GetOrCreateSessionRequest) (*rpccodec.GetOrCreateSessionResponse, error) {
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid user id", err)
	}

	sess, isReconnection, err := s.sessions.GetOrCreateSession(ctx, userID, req.ChatID, req.MessageID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &rpccodec.GetOrCreateSessionResponse{
		SessionID:      sess.ID.String(),
		Success:        true,
		IsReconnection: isReconnection,
		TotalClicks:    user.TotalClicks,
		StartedAt:      sess.StartedAt.UnixMilli(),
		DurationSecs:   time.Since(sess.StartedAt).Seconds(),
	}, nil
}
