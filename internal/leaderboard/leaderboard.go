// Package leaderboard implements the ground-truth top-N materializer.
// Unlike internal/ranking, which is fed by the event-log stream and may
// lag briefly, this package recomputes directly from the durable store on
// a ticker and publishes an immutable snapshot under an atomic pointer —
// readers never observe a torn read mid-refresh.
package leaderboard

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/store"
)

// Cap is the maximum number of ranked rows a snapshot retains.
const Cap = 1000

// Row is one ranked entry in a Snapshot.
type Row struct {
	Rank        int
	UserID      id.UserID
	Username    id.Username
	TotalClicks int64
}

// Snapshot is one immutable generation of the top-N view.
type Snapshot struct {
	Rows      []Row
	Generated time.Time
}

// RankOf returns the row for user if they are present in this snapshot.
func (s *Snapshot) RankOf(user id.UserID) (Row, bool) {
	if s == nil {
		return Row{}, false
	}
	for _, r := range s.Rows {
		if r.UserID == user {
			return r, true
		}
	}
	return Row{}, false
}

// Materializer periodically refreshes a Snapshot from the durable store.
type Materializer struct {
	repo     store.Repository
	period   time.Duration
	snapshot atomic.Pointer[Snapshot]
}

func New(repo store.Repository, period time.Duration) *Materializer {
	m := &Materializer{repo: repo, period: period}
	m.snapshot.Store(&Snapshot{})
	return m
}

// Current returns the most recently published snapshot.
func (m *Materializer) Current() *Snapshot {
	return m.snapshot.Load()
}

// Refresh queries the durable store once and swaps in a new snapshot.
func (m *Materializer) Refresh(ctx context.Context) error {
	rows, err := m.repo.TopN(ctx, Cap)
	if err != nil {
		return err
	}

	snap := &Snapshot{Rows: make([]Row, len(rows)), Generated: time.Now()}
	for i, r := range rows {
		snap.Rows[i] = Row{Rank: r.Rank, UserID: r.UserID, Username: r.Username, TotalClicks: r.TotalClicks}
	}
	m.snapshot.Store(snap)
	return nil
}

// Run refreshes on a ticker until ctx is canceled. Refresh errors are
// reported to onError (typically a logger call) rather than stopping the
// loop — the previous snapshot remains visible to readers.
func (m *Materializer) Run(ctx context.Context, onError func(error)) {
	if err := m.Refresh(ctx); err != nil && onError != nil {
		onError(err)
	}

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
