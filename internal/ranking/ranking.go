// Package ranking implements the stream-fed leaderboard index: a Redis
// sorted set keyed by score, with a side hash so a user keeps their rank
// across a username change.
package ranking

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
)

const (
	globalSetKey   = "leaderboard:global"
	userMembersKey = "leaderboard:user_members"
)

// Index is the ranking index.
type Index struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Index {
	return &Index{client: client}
}

func member(user id.UserID, username id.Username) string {
	return fmt.Sprintf("%s:%s", user.String(), username.String())
}

func splitMember(m string) (id.UserID, id.Username, error) {
	idx := strings.LastIndex(m, ":")
	if idx < 0 {
		return id.UserID{}, id.Username{}, fmt.Errorf("malformed leaderboard member %q", m)
	}
	uid, err := id.ParseUserID(m[:idx])
	if err != nil {
		return id.UserID{}, id.Username{}, err
	}
	username, err := id.ParseUsername(m[idx+1:])
	if err != nil {
		return id.UserID{}, id.Username{}, err
	}
	return uid, username, nil
}

// Update writes the side mapping then upserts (member, score). It is an
// absolute-value write: re-applying the same record is idempotent, which
// is what makes at-least-once event-log delivery safe.
func (idx *Index) Update(ctx context.Context, user id.UserID, username id.Username, score int64) error {
	newMember := member(user, username)

	oldMember, err := idx.client.HGet(ctx, userMembersKey, user.String()).Result()
	if err != nil && err != redis.Nil {
		return apierrors.Wrap(apierrors.Staging, "reading previous leaderboard member failed", err)
	}

	pipe := idx.client.TxPipeline()
	if oldMember != "" && oldMember != newMember {
		pipe.ZRem(ctx, globalSetKey, oldMember)
	}
	pipe.ZAdd(ctx, globalSetKey, &redis.Z{Score: float64(score), Member: newMember})
	pipe.HSet(ctx, userMembersKey, user.String(), newMember)
	if _, err := pipe.Exec(ctx); err != nil {
		return apierrors.Wrap(apierrors.Staging, "updating leaderboard index failed", err)
	}
	return nil
}

// Rank returns the user's 1-based descending rank, or 0 if absent.
func (idx *Index) Rank(ctx context.Context, user id.UserID) (int, error) {
	m, err := idx.client.HGet(ctx, userMembersKey, user.String()).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, apierrors.Wrap(apierrors.Staging, "reading leaderboard member failed", err)
	}

	rank, err := idx.client.ZRevRank(ctx, globalSetKey, m).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, apierrors.Wrap(apierrors.Staging, "reading leaderboard rank failed", err)
	}
	return int(rank) + 1, nil
}

// Entry is one row of a Top query.
type Entry struct {
	Rank        int
	UserID      id.UserID
	Username    id.Username
	TotalClicks int64
}

// Top performs a reverse range scan with scores starting at offset, for up
// to limit entries, attaching a dense-style rank (offset + i + 1).
func (idx *Index) Top(ctx context.Context, limit, offset int) ([]Entry, error) {
	start := int64(offset)
	stop := int64(offset + limit - 1)

	results, err := idx.client.ZRevRangeWithScores(ctx, globalSetKey, start, stop).Result()
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Staging, "querying leaderboard top-N failed", err)
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		m, ok := z.Member.(string)
		if !ok {
			continue
		}
		uid, username, err := splitMember(m)
		if err != nil {
			continue // corrupt member: skip rather than fail the whole page
		}
		entries = append(entries, Entry{
			Rank:        offset + i + 1,
			UserID:      uid,
			Username:    username,
			TotalClicks: int64(z.Score),
		})
	}
	return entries, nil
}
