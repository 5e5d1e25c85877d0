package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
)

// MemoryRepository is an in-memory Repository double for tests that don't
// want a live Postgres instance.
type MemoryRepository struct {
	mu         sync.Mutex
	users      map[id.UserID]*User
	byExternal map[int64]id.UserID
	sessions   map[id.SessionID]*Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[id.UserID]*User),
		byExternal: make(map[int64]id.UserID),
		sessions:   make(map[id.SessionID]*Session),
	}
}

func (m *MemoryRepository) CreateUser(_ context.Context, externalID int64, username id.Username) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byExternal[externalID]; exists {
		return nil, apierrors.New(apierrors.UserAlreadyExists, fmt.Sprintf("external id %d already registered", externalID))
	}
	now := time.Now()
	u := &User{
		ID:          id.NewUserID(),
		ExternalID:  externalID,
		Username:    username,
		TotalClicks: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.users[u.ID] = u
	m.byExternal[externalID] = u.ID
	copyU := *u
	return &copyU, nil
}

func (m *MemoryRepository) GetUserByExternalID(_ context.Context, externalID int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uid, ok := m.byExternal[externalID]
	if !ok {
		return nil, apierrors.New(apierrors.UserNotFound, fmt.Sprintf("no user with external id %d", externalID))
	}
	u := *m.users[uid]
	return &u, nil
}

func (m *MemoryRepository) GetUserByID(_ context.Context, userID id.UserID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, apierrors.New(apierrors.UserNotFound, fmt.Sprintf("no user with id %s", userID))
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) UpdateUsername(_ context.Context, userID id.UserID, username id.Username) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, apierrors.New(apierrors.UserNotFound, fmt.Sprintf("no user with id %s", userID))
	}
	u.Username = username
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) BulkIncrement(_ context.Context, increments map[id.UserID]Increment) (map[id.UserID]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := make([]id.UserID, 0, len(increments))
	for u := range increments {
		ordered = append(ordered, u)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].String() < ordered[j].String() })

	result := make(map[id.UserID]int64, len(ordered))
	for _, uid := range ordered {
		u, ok := m.users[uid]
		if !ok {
			continue // deleted concurrently: absent from the result, per the interface contract
		}
		inc := increments[uid]
		u.TotalClicks += inc.Count
		u.UpdatedAt = time.Now()
		result[uid] = u.TotalClicks
	}
	return result, nil
}

func (m *MemoryRepository) CreateSession(_ context.Context, userID id.UserID, chatID int64, messageID *int32) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:            id.NewSessionID(),
		UserID:        userID,
		ChatID:        chatID,
		MessageID:     messageID,
		StartedAt:     now,
		LastHeartbeat: now,
		IsActive:      true,
	}
	m.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) Heartbeat(_ context.Context, sessionID id.SessionID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || !s.IsActive {
		return nil, apierrors.New(apierrors.SessionNotFound, fmt.Sprintf("no active session %s", sessionID))
	}
	s.LastHeartbeat = time.Now()
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) EndSession(_ context.Context, sessionID id.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return apierrors.New(apierrors.SessionNotFound, fmt.Sprintf("no session %s", sessionID))
	}
	now := time.Now()
	s.IsActive = false
	s.EndedAt = &now
	return nil
}

func (m *MemoryRepository) GetSession(_ context.Context, sessionID id.SessionID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, apierrors.New(apierrors.SessionNotFound, fmt.Sprintf("no session %s", sessionID))
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) GetActiveSessionForUser(_ context.Context, userID id.UserID, timeout time.Duration) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *Session
	cutoff := time.Now().Add(-timeout)
	for _, s := range m.sessions {
		if s.UserID != userID || !s.IsActive || s.LastHeartbeat.Before(cutoff) {
			continue
		}
		if best == nil || s.LastHeartbeat.After(best.LastHeartbeat) {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *MemoryRepository) CleanupExpiredSessions(_ context.Context, timeout time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-timeout)
	var reaped int64
	now := time.Now()
	for _, s := range m.sessions {
		if s.IsActive && s.LastHeartbeat.Before(cutoff) {
			s.IsActive = false
			s.EndedAt = &now
			reaped++
		}
	}
	return reaped, nil
}

func (m *MemoryRepository) TopN(_ context.Context, limit int) ([]LeaderboardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		if u.TotalClicks > 0 {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalClicks != all[j].TotalClicks {
			return all[i].TotalClicks > all[j].TotalClicks
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	var out []LeaderboardRow
	rank := 0
	var lastClicks int64 = -1
	for _, u := range all {
		if len(out) >= limit {
			break
		}
		if u.TotalClicks != lastClicks {
			rank++
			lastClicks = u.TotalClicks
		}
		out = append(out, LeaderboardRow{Rank: rank, UserID: u.ID, Username: u.Username, TotalClicks: u.TotalClicks})
	}
	return out, nil
}

func (m *MemoryRepository) GlobalStats(_ context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var totalClicks int64
	for _, u := range m.users {
		totalClicks += u.TotalClicks
	}
	return totalClicks, int64(len(m.users)), nil
}

func (m *MemoryRepository) ActiveSessionCount(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, s := range m.sessions {
		if s.IsActive {
			n++
		}
	}
	return n, nil
}

// SetSessionStartedAt backdates a session's start time, for tests that
// need to exercise duration-derived fields without sleeping.
func (m *MemoryRepository) SetSessionStartedAt(sessionID id.SessionID, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.StartedAt = t
	}
}

// SetSessionHeartbeat backdates a session's last heartbeat, for tests that
// need to exercise staleness/reaping without sleeping.
func (m *MemoryRepository) SetSessionHeartbeat(sessionID id.SessionID, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.LastHeartbeat = t
	}
}

var _ Repository = (*MemoryRepository)(nil)
