// Package shardacc implements the shared sharded click accumulator.
// Multiple identical front-end instances each own one shard of a
// partitioned staging space in Redis so that bursts routed by different
// RPC clients coalesce before ever reaching the durable store.
package shardacc

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/go-redis/redis/v8"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/store"
	"github.com/clickgame/backend/internal/telemetry"
)

// MaxFlushUsers is the hard cap on users applied per flush cycle; any
// overflow is left on the shard hash for the next tick.
const MaxFlushUsers = 20

// ShardFor returns the stable shard index a user's traffic should route
// to: a 64-bit FNV-1a hash of the user id, modulo numShards.
func ShardFor(user id.UserID, numShards int) int {
	if numShards <= 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(user.Bytes())
	return int(h.Sum64() % uint64(numShards))
}

func shardKey(shard int) string {
	return fmt.Sprintf("pending:shard:%d", shard)
}

const usernamesKey = "pending:usernames"

// Accumulator is the shared sharded staging stage for a single shard.
type Accumulator struct {
	client  redis.UniversalClient
	repo    store.Repository
	shard   int
	metrics *telemetry.Metrics
}

func New(client redis.UniversalClient, repo store.Repository, shard int, metrics *telemetry.Metrics) *Accumulator {
	return &Accumulator{client: client, repo: repo, shard: shard, metrics: metrics}
}

// Accumulate increments the shard's hash field for user by n and
// best-effort write-throughs a username snapshot. A failed username write
// is discarded: it is neither logged nor returned to the caller.
func (a *Accumulator) Accumulate(ctx context.Context, user id.UserID, username id.Username, n int64) (int64, error) {
	total, err := a.client.HIncrBy(ctx, shardKey(a.shard), user.String(), n).Result()
	if err != nil {
		return 0, apierrors.Wrap(apierrors.Staging, "shard accumulate failed", err)
	}
	// Best-effort: a missed username snapshot only affects the display
	// name attached to the next flush, not correctness of the count.
	_ = a.client.HSet(ctx, usernamesKey, user.String(), username.String()).Err()
	return total, nil
}

// Flush fetches the shard's entire hash, deletes it, looks up usernames in
// bulk, caps the batch at MaxFlushUsers (excess stays in a fresh hash for
// the next tick), and bulk-increments the durable store. Flush itself does
// not retry; deadlock retry happens inside Repository.BulkIncrement
// (PGRepository: up to 3 retries at 100/200/400ms).
func (a *Accumulator) Flush(ctx context.Context) (map[id.UserID]int64, error) {
	key := shardKey(a.shard)

	fields, err := a.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Staging, "reading shard hash failed", err)
	}
	if len(fields) == 0 {
		return map[id.UserID]int64{}, nil
	}
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return nil, apierrors.Wrap(apierrors.Staging, "clearing shard hash failed", err)
	}

	applied, overflow := splitOverflow(fields, MaxFlushUsers)
	if len(overflow) > 0 {
		if err := a.client.HSet(ctx, key, overflow).Err(); err != nil {
			return nil, apierrors.Wrap(apierrors.Staging, "returning overflow to shard hash failed", err)
		}
	}

	increments, err := a.resolveIncrements(ctx, applied)
	if err != nil {
		return nil, err
	}
	if len(increments) == 0 {
		return map[id.UserID]int64{}, nil
	}
	if a.metrics != nil {
		a.metrics.FlushBatchSize.Observe(float64(len(increments)))
	}

	// BulkIncrement already retries deadlocks internally with its own
	// schedule; a flush failure here has exhausted that and surfaces.
	result, err := a.repo.BulkIncrement(ctx, increments)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Database, "shard flush failed", err)
	}
	return result, nil
}

func (a *Accumulator) resolveIncrements(ctx context.Context, applied map[string]string) (map[id.UserID]store.Increment, error) {
	userIDs := make([]string, 0, len(applied))
	for rawID := range applied {
		userIDs = append(userIDs, rawID)
	}
	names, err := a.client.HMGet(ctx, usernamesKey, userIDs...).Result()
	if err != nil {
		return nil, apierrors.Wrap(apierrors.Staging, "resolving usernames failed", err)
	}

	increments := make(map[id.UserID]store.Increment, len(applied))
	for i, rawID := range userIDs {
		uid, err := id.ParseUserID(rawID)
		if err != nil {
			continue // corrupt field: skip rather than fail the whole flush
		}
		count, err := parseCount(applied[rawID])
		if err != nil {
			continue
		}
		var username id.Username
		if i < len(names) {
			if s, ok := names[i].(string); ok {
				if u, err := id.ParseUsername(s); err == nil {
					username = u
				}
			}
		}
		increments[uid] = store.Increment{Username: username, Count: count}
	}
	return increments, nil
}

// splitOverflow returns up to max entries of fields (applied) and the rest
// (overflow), for the next flush tick to pick up.
func splitOverflow(fields map[string]string, max int) (applied, overflow map[string]string) {
	if len(fields) <= max {
		return fields, nil
	}
	applied = make(map[string]string, max)
	overflow = make(map[string]string, len(fields)-max)
	i := 0
	for k, v := range fields {
		if i < max {
			applied[k] = v
		} else {
			overflow[k] = v
		}
		i++
	}
	return applied, overflow
}

func parseCount(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

