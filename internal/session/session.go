// Package session implements get-or-create session semantics and the
// stale-session reaper, on top of the durable store's session records.
package session

import (
	"context"
	"time"

	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/store"
)

// reapStaleAfter is the heartbeat age past which the reaper marks a
// session inactive, independent of the shorter GetOrCreateSession reuse
// window.
const reapStaleAfter = 5 * time.Minute

// reaperInterval is the reaper's tick cadence.
const reaperInterval = 60 * time.Second

// Stats is the GetSessionStats response shape, supplementing the bare
// session record with derived fields.
type Stats struct {
	TotalClicks     int64
	DurationSecs    float64
	ClicksPerMinute float64
	IsActive        bool
	EndedAt         *time.Time
}

// Service is the get-or-create/reaper logic over store.Repository.
type Service struct {
	repo    store.Repository
	timeout time.Duration
}

func New(repo store.Repository, sessionTimeout time.Duration) *Service {
	return &Service{repo: repo, timeout: sessionTimeout}
}

// GetOrCreateSession reuses an active session for user whose heartbeat is
// within the configured timeout, bumping its heartbeat; otherwise it
// starts a new one. messageID is the optional Telegram message anchor;
// nil when the caller has none.
func (s *Service) GetOrCreateSession(ctx context.Context, user id.UserID, chatID int64, messageID *int32) (*store.Session, bool, error) {
	existing, err := s.repo.GetActiveSessionForUser(ctx, user, s.timeout)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		updated, err := s.repo.Heartbeat(ctx, existing.ID)
		if err != nil {
			return nil, false, err
		}
		return updated, true, nil
	}

	created, err := s.repo.CreateSession(ctx, user, chatID, messageID)
	if err != nil {
		return nil, false, err
	}
	return created, false, nil
}

// Heartbeat records liveness for an existing active session.
func (s *Service) Heartbeat(ctx context.Context, sessionID id.SessionID) (*store.Session, error) {
	return s.repo.Heartbeat(ctx, sessionID)
}

// EndSession marks a session inactive.
func (s *Service) EndSession(ctx context.Context, sessionID id.SessionID) error {
	return s.repo.EndSession(ctx, sessionID)
}

// GetStats computes the GetSessionStats response for sessionID.
func (s *Service) GetStats(ctx context.Context, sessionID id.SessionID) (*Stats, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	end := time.Now()
	if sess.EndedAt != nil {
		end = *sess.EndedAt
	}
	duration := end.Sub(sess.StartedAt).Seconds()

	var perMinute float64
	if duration > 0 {
		perMinute = float64(user.TotalClicks) / duration * 60
	}

	return &Stats{
		TotalClicks:     user.TotalClicks,
		DurationSecs:    duration,
		ClicksPerMinute: perMinute,
		IsActive:        sess.IsActive,
		EndedAt:         sess.EndedAt,
	}, nil
}

// RunReaper marks stale sessions inactive on a 60s cadence until ctx is
// canceled, reporting each cycle's eviction count through onEvict.
func (s *Service) RunReaper(ctx context.Context, onEvict func(n int64)) {
	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.CleanupExpiredSessions(ctx, reapStaleAfter)
			if err == nil && onEvict != nil && n > 0 {
				onEvict(n)
			}
		}
	}
}
