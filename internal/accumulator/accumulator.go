// Package accumulator implements the in-process click staging stage: a
// short-window per-instance aggregation that coalesces rapid repeat clicks
// from the same user before they reach the durable store.
// It is an alternative to the shared shard accumulator (internal/shardacc),
// not a stage in front of it: Flush applies its batch directly to
// store.Repository, and none of the binaries wires it in.
package accumulator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/store"
)

// MaxChunk is the largest batch BulkIncrement is asked to take in one call
// before the flush splits it and fans the chunks out concurrently.
const MaxChunk = 50

type pendingEntry struct {
	username id.Username
	count    int64
}

// Accumulator holds per-user pending click counts since the last flush.
type Accumulator struct {
	mu      sync.RWMutex
	pending map[id.UserID]pendingEntry
	repo    store.Repository
}

func New(repo store.Repository) *Accumulator {
	return &Accumulator{
		pending: make(map[id.UserID]pendingEntry),
		repo:    repo,
	}
}

// Accumulate adds n clicks to user's pending entry and returns the new
// accumulated (not-yet-durable) total.
func (a *Accumulator) Accumulate(user id.UserID, username id.Username, n int64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.pending[user]
	e.username = username
	e.count += n
	a.pending[user] = e
	return e.count
}

// Flush atomically takes and clears the pending map, then bulk-applies it
// to the durable store in chunks of at most MaxChunk users, applied
// concurrently. It returns the post-update total for every user the store
// still recognizes (deleted users are simply absent).
func (a *Accumulator) Flush(ctx context.Context) (map[id.UserID]int64, error) {
	a.mu.Lock()
	taken := a.pending
	a.pending = make(map[id.UserID]pendingEntry)
	a.mu.Unlock()

	if len(taken) == 0 {
		return map[id.UserID]int64{}, nil
	}

	chunks := chunk(taken, MaxChunk)

	results := make([]map[id.UserID]int64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			increments := make(map[id.UserID]store.Increment, len(c))
			for u, e := range c {
				increments[u] = store.Increment{Username: e.username, Count: e.count}
			}
			res, err := a.repo.BulkIncrement(gctx, increments)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[id.UserID]int64, len(taken))
	for _, res := range results {
		for u, total := range res {
			merged[u] = total
		}
	}
	return merged, nil
}

// Pending reports the number of users currently staged, for metrics/tests.
func (a *Accumulator) Pending() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pending)
}

func chunk(m map[id.UserID]pendingEntry, size int) []map[id.UserID]pendingEntry {
	var chunks []map[id.UserID]pendingEntry
	cur := make(map[id.UserID]pendingEntry, size)
	for u, e := range m {
		cur[u] = e
		if len(cur) == size {
			chunks = append(chunks, cur)
			cur = make(map[id.UserID]pendingEntry, size)
		}
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}
