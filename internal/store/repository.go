// Package store is the durable-store adapter: user/session lifecycle and
// the deadlock-tolerant bulk increment that the click pipeline drains into.
// Repository is a capability set so tests can substitute an in-memory
// double without touching Postgres.
package store

import (
	"context"
	"time"

	"github.com/clickgame/backend/internal/id"
)

// Repository is the durable store's capability set.
type Repository interface {
	CreateUser(ctx context.Context, externalID int64, username id.Username) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID int64) (*User, error)
	GetUserByID(ctx context.Context, userID id.UserID) (*User, error)
	UpdateUsername(ctx context.Context, userID id.UserID, username id.Username) (*User, error)

	// BulkIncrement applies every increment atomically and returns the
	// post-update total for each user that still exists.
	// Users deleted concurrently are simply absent from the result.
	BulkIncrement(ctx context.Context, increments map[id.UserID]Increment) (map[id.UserID]int64, error)

	CreateSession(ctx context.Context, userID id.UserID, chatID int64, messageID *int32) (*Session, error)
	Heartbeat(ctx context.Context, sessionID id.SessionID) (*Session, error)
	EndSession(ctx context.Context, sessionID id.SessionID) error
	GetSession(ctx context.Context, sessionID id.SessionID) (*Session, error)
	GetActiveSessionForUser(ctx context.Context, userID id.UserID, timeout time.Duration) (*Session, error)
	CleanupExpiredSessions(ctx context.Context, timeout time.Duration) (int64, error)

	// TopN returns up to limit users with total_clicks > 0, dense-ranked
	// descending by total_clicks, for the leaderboard materializer.
	TopN(ctx context.Context, limit int) ([]LeaderboardRow, error)
	GlobalStats(ctx context.Context) (totalClicks int64, totalUsers int64, err error)

	// ActiveSessionCount backs LeaderboardService.GetGlobalStats' active_sessions field.
	ActiveSessionCount(ctx context.Context) (int64, error)
}

// LeaderboardRow is one dense-ranked row of a TopN query.
type LeaderboardRow struct {
	Rank        int
	UserID      id.UserID
	Username    id.Username
	TotalClicks int64
}
