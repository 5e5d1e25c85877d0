// Package leaderboardserver implements the leaderboard-service gRPC
// handlers over the ranking index and the leaderboard materializer. For a
// user outside the cached top-N, the total comes from the durable store and
// the rank from the ranking index.
package leaderboardserver

import (
	"context"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/leaderboard"
	"github.com/clickgame/backend/internal/ranking"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/store"
)

// Server implements rpccodec.LeaderboardServer.
type Server struct {
	repo         store.Repository
	materializer *leaderboard.Materializer
	rank         *ranking.Index
}

func New(repo store.Repository, materializer *leaderboard.Materializer, rank *ranking.Index) *Server {
	return &Server{repo: repo, materializer: materializer, rank: rank}
}

// GetLeaderboard serves the cached top-N snapshot, never the live store —
// one atomic generation swap, no torn reads.
func (s *Server) GetLeaderboard(ctx context.Context, req *rpccodec.GetLeaderboardRequest) (*rpccodec.GetLeaderboardResponse, error) {
	limit := int(req.Limit)
	if limit <= 0 {
		limit = 20
	}
	offset := int(req.Offset)
	if offset < 0 {
		offset = 0
	}

	snap := s.materializer.Current()
	rows := snap.Rows
	if offset >= len(rows) {
		rows = nil
	} else {
		rows = rows[offset:]
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	entries := make([]rpccodec.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rpccodec.LeaderboardEntry{
			Rank:        int32(row.Rank),
			UserID:      row.UserID.String(),
			Username:    row.Username.String(),
			TotalClicks: row.TotalClicks,
		})
	}

	return &rpccodec.GetLeaderboardResponse{
		Entries:    entries,
		TotalCount: int64(len(snap.Rows)),
	}, nil
}

// GetUserRank answers from the cached top-N when the user is present
// there. Otherwise it reads the user's total from the durable store and
// the rank from the stream-fed ranking index; it does not compute a rank
// from the durable store.
func (s *Server) GetUserRank(ctx context.Context, req *rpccodec.GetUserRankRequest) (*rpccodec.GetUserRankResponse, error) {
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid user id", err)
	}

	if row, ok := s.materializer.Current().RankOf(userID); ok {
		return &rpccodec.GetUserRankResponse{Rank: int32(row.Rank), TotalClicks: row.TotalClicks, Found: true}, nil
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if apierrors.Is(err, apierrors.UserNotFound) {
		return &rpccodec.GetUserRankResponse{Found: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if user.TotalClicks == 0 {
		return &rpccodec.GetUserRankResponse{Found: false}, nil
	}

	rank, err := s.rank.Rank(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &rpccodec.GetUserRankResponse{
		Rank:        int32(rank),
		TotalClicks: user.TotalClicks,
		Found:       rank > 0,
	}, nil
}

func (s *Server) GetGlobalStats(ctx context.Context, _ *rpccodec.GetGlobalStatsRequest) (*rpccodec.GetGlobalStatsResponse, error) {
	totalClicks, totalUsers, err := s.repo.GlobalStats(ctx)
	if err != nil {
		return nil, err
	}
	activeSessions, err := s.repo.ActiveSessionCount(ctx)
	if err != nil {
		return nil, err
	}
	return &rpccodec.GetGlobalStatsResponse{
		TotalClicks:    totalClicks,
		TotalUsers:     totalUsers,
		ActiveSessions: activeSessions,
	}, nil
}

// UpdateUserScore writes directly into the ranking index, the same
// absolute-value write path the event-log consumer uses — exposed as an
// RPC for administrative/backfill score corrections.
func (s *Server) UpdateUserScore(ctx context.Context, req *rpccodec.UpdateUserScoreRequest) (*rpccodec.UpdateUserScoreResponse, error) {
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Validation, "invalid user id", err)
	}
	username, err := id.ParseUsername(req.Username)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.InvalidUsername, "invalid username", err)
	}

	if err := s.rank.Update(ctx, userID, username, req.Score); err != nil {
		return nil, err
	}
	newRank, err := s.rank.Rank(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &rpccodec.UpdateUserScoreResponse{Success: true, NewRank: int32(newRank)}, nil
}
