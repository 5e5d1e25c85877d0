// Package rpcpool implements a fixed-size pool of pre-connected gRPC client
// connections with round-robin and sharded selection, each slot serialized
// so at most one call is in flight per connection.
package rpcpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/shardacc"
)

// DefaultCallTimeout is the per-call timeout enforced on every outbound
// RPC dispatched through the pool.
const DefaultCallTimeout = 500 * time.Millisecond

// keepaliveParams pings an idle connection so a dead back end is detected
// without waiting on a call timeout.
var keepaliveParams = keepalive.ClientParameters{
	Time:                20 * time.Second,
	Timeout:             5 * time.Second,
	PermitWithoutStream: true,
}

// slot is one pooled connection, guarded by its own mutex so at most one
// call is in flight at a time.
type slot struct {
	mu   sync.Mutex
	conn *grpc.ClientConn
}

// Pool is a fixed-size vector of pre-connected gRPC clients, keyed by
// index for round-robin selection and by user-id hash for sharded
// selection (aligning with the shard accumulator's own shard assignment).
type Pool struct {
	slots       []*slot
	roundRobin  atomic.Uint64
	callTimeout time.Duration
}

// Dial connects size gRPC client connections to target, each configured
// with the JSON codec registered by internal/rpccodec and HTTP/2 keepalive
// pings, rather than protoc-generated stubs.
func Dial(target string, size int, callTimeout time.Duration) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	p := &Pool{slots: make([]*slot, size), callTimeout: callTimeout}
	for i := 0; i < size; i++ {
		conn, err := grpc.NewClient(target,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpccodec.Name)),
			grpc.WithKeepaliveParams(keepaliveParams),
		)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("rpcpool: dialing slot %d: %w", i, err)
		}
		p.slots[i] = &slot{conn: conn}
	}
	return p, nil
}

// WrapConns builds a Pool over already-established connections, for callers
// that manage dialing themselves (tests standing up a bufconn server, or a
// future multi-target dialer that mixes connections from different hosts).
func WrapConns(conns []*grpc.ClientConn, callTimeout time.Duration) *Pool {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	p := &Pool{slots: make([]*slot, len(conns)), callTimeout: callTimeout}
	for i, c := range conns {
		p.slots[i] = &slot{conn: c}
	}
	return p
}

// Close tears down every pooled connection.
func (p *Pool) Close() {
	for _, s := range p.slots {
		if s != nil && s.conn != nil {
			_ = s.conn.Close()
		}
	}
}

// AcquireRoundRobin selects the next slot in round-robin order, used for
// stateless lookups that don't need shard locality. release must be
// called exactly once when the caller is done with conn; it cancels the
// per-call timeout context and frees the slot for the next caller.
func (p *Pool) AcquireRoundRobin(ctx context.Context) (conn *grpc.ClientConn, cctx context.Context, release func()) {
	idx := p.roundRobin.Add(1) % uint64(len(p.slots))
	return p.acquire(ctx, int(idx))
}

// AcquireSharded selects the slot owning user's shard via the same stable
// hash the shard accumulator uses for shard assignment, so all click
// traffic for a user reaches the same back-end pool entry.
func (p *Pool) AcquireSharded(ctx context.Context, user id.UserID) (conn *grpc.ClientConn, cctx context.Context, release func()) {
	idx := shardacc.ShardFor(user, len(p.slots))
	return p.acquire(ctx, idx)
}

func (p *Pool) acquire(ctx context.Context, idx int) (*grpc.ClientConn, context.Context, func()) {
	s := p.slots[idx]
	s.mu.Lock()
	cctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	return s.conn, cctx, func() { cancel(); s.mu.Unlock() }
}

// Len reports the pool's configured size, for tests and metrics.
func (p *Pool) Len() int {
	return len(p.slots)
}

// GameClientSharded acquires a slot by user shard and returns a typed
// GameService client bound to the call-scoped timeout context, plus the
// release function the caller must invoke when done.
func (p *Pool) GameClientSharded(ctx context.Context, user id.UserID) (client rpccodec.GameServiceClient, cctx context.Context, release func()) {
	conn, cctx, release := p.AcquireSharded(ctx, user)
	return rpccodec.NewGameServiceClient(conn), cctx, release
}

// LeaderboardClientRoundRobin acquires a round-robin slot and returns a
// typed LeaderboardService client, for the stateless leaderboard reads the
// push gateway issues between broadcast ticks.
func (p *Pool) LeaderboardClientRoundRobin(ctx context.Context) (client rpccodec.LeaderboardServiceClient, cctx context.Context, release func()) {
	conn, cctx, release := p.AcquireRoundRobin(ctx)
	return rpccodec.NewLeaderboardServiceClient(conn), cctx, release
}
