package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/rpcpool"
)

// broadcastLimit is the page size pulled from the leaderboard service for
// each tick's leaderboard_update frame.
const broadcastLimit = 20

// Broadcaster pulls the cached top-N from the leaderboard service on a
// ticker and fans it out over the Hub's lossy broadcast channel. The
// gateway is a separate process from leaderboardservice, so it reaches the
// materialized snapshot over the RPC pool rather than holding a direct
// reference to it.
type Broadcaster struct {
	hub    *Hub
	lbPool *rpcpool.Pool
	period time.Duration
	logger log.Logger
}

func NewBroadcaster(hub *Hub, lbPool *rpcpool.Pool, period time.Duration, logger log.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, lbPool: lbPool, period: period, logger: logger}
}

// Run publishes one leaderboard_update frame immediately and then on every
// tick until ctx is canceled.
func (b *Broadcaster) Run(ctx context.Context) {
	b.tick(ctx)

	ticker := time.NewTicker(b.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context) {
	client, cctx, release := b.lbPool.LeaderboardClientRoundRobin(ctx)
	defer release()

	resp, err := client.GetLeaderboard(cctx, &rpccodec.GetLeaderboardRequest{Limit: broadcastLimit})
	if err != nil {
		level.Error(b.logger).Log("msg", "fetching leaderboard for broadcast failed", "err", err)
		return
	}

	entries := make([]LeaderboardEntry, len(resp.Entries))
	for i, e := range resp.Entries {
		entries[i] = LeaderboardEntry{Rank: e.Rank, UserID: e.UserID, Username: e.Username, TotalClicks: e.TotalClicks}
	}

	frame := Frame{Type: TypeLeaderboardUpdate, Entries: entries}
	payload, err := json.Marshal(frame)
	if err != nil {
		level.Error(b.logger).Log("msg", "encoding leaderboard broadcast failed", "err", err)
		return
	}
	b.hub.Publish(payload)
}
