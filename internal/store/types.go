package store

import (
	"time"

	"github.com/clickgame/backend/internal/id"
)

// User is the durable record backing a player account.
type User struct {
	ID          id.UserID
	ExternalID  int64
	Username    id.Username
	TotalClicks int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session is a durable game session.
type Session struct {
	ID            id.SessionID
	UserID        id.UserID
	ChatID        int64
	MessageID     *int32
	StartedAt     time.Time
	LastHeartbeat time.Time
	EndedAt       *time.Time
	IsActive      bool
}

// Increment is one user's contribution to a BulkIncrement call.
type Increment struct {
	Username id.Username
	Count    int64
}
