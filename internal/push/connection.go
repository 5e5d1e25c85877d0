// Package push implements the per-connection websocket pump and the
// process-wide top-N broadcaster that feeds it.
package push

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/rpcpool"
	"github.com/clickgame/backend/internal/telemetry"
)

// Connection is one full-duplex push-gateway client channel. Its receive
// task parses frames and dispatches to handlers; its broadcast-subscriber
// task forwards Hub snapshots. Both write to conn behind writeMu, and the
// two tasks are joined so either ending cancels the other.
type Connection struct {
	conn     *websocket.Conn
	hub      *Hub
	gamePool *rpcpool.Pool
	lbPool   *rpcpool.Pool
	metrics  *telemetry.Metrics
	logger   log.Logger

	writeMu sync.Mutex
}

func NewConnection(conn *websocket.Conn, hub *Hub, gamePool, lbPool *rpcpool.Pool, metrics *telemetry.Metrics, logger log.Logger) *Connection {
	return &Connection{conn: conn, hub: hub, gamePool: gamePool, lbPool: lbPool, metrics: metrics, logger: logger}
}

// Serve runs the connection until either the client disconnects or ctx is
// canceled, joining the receive and broadcast-subscriber tasks.
func (c *Connection) Serve(ctx context.Context) error {
	if c.metrics != nil {
		c.metrics.WebsocketConnections.Inc()
		defer c.metrics.WebsocketConnections.Dec()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, unsubscribe := c.hub.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return c.receiveLoop(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return c.broadcastLoop(gctx, sub)
	})
	go func() {
		<-gctx.Done()
		// Unblock the receive task's pending ReadMessage.
		_ = c.conn.SetReadDeadline(time.Now())
	}()
	return g.Wait()
}

func (c *Connection) receiveLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil // client disconnected, or the read deadline was set on cancellation
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError(ctx, "malformed frame")
			continue
		}

		c.dispatch(ctx, frame)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (c *Connection) broadcastLoop(ctx context.Context, sub chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-sub:
			if !ok {
				return nil
			}
			if err := c.writeRaw(payload); err != nil {
				return err
			}
		}
	}
}

func (c *Connection) dispatch(ctx context.Context, frame Frame) {
	switch frame.Type {
	case TypeInit:
		c.handleInit(ctx, frame)
	case TypeClick:
		c.handleClick(ctx, frame)
	case TypeRefresh:
		c.handleRefresh(ctx, frame)
	default:
		c.sendError(ctx, "unknown frame type: "+frame.Type)
	}
}

// handleInit looks the user up and establishes a session. on
// UserNotFound the gateway emits a clear error instructing the user to
// register through the chat flow rather than creating one implicitly.
func (c *Connection) handleInit(ctx context.Context, frame Frame) {
	userID, err := id.ParseUserID(frame.UserID)
	if err != nil {
		c.sendError(ctx, "invalid user id")
		return
	}

	gameClient, cctx, release := c.gamePool.GameClientSharded(ctx, userID)
	defer release()

	getResp, err := gameClient.GetUser(cctx, &rpccodec.GetUserRequest{ExternalID: frame.ExternalID})
	if err != nil {
		c.sendError(ctx, "looking up user failed")
		return
	}
	if !getResp.Exists {
		c.sendError(ctx, "user not registered — register through the chat bot first")
		return
	}

	sessResp, err := gameClient.GetOrCreateSession(cctx, &rpccodec.GetOrCreateSessionRequest{UserID: frame.UserID, ChatID: frame.ExternalID})
	if err != nil {
		c.sendError(ctx, "starting session failed")
		return
	}

	c.send(ctx, Frame{
		Type:           TypeSessionInfo,
		SessionID:      sessResp.SessionID,
		IsReconnection: sessResp.IsReconnection,
		StartedAt:      sessResp.StartedAt,
	})
}

func (c *Connection) handleClick(ctx context.Context, frame Frame) {
	userID, err := id.ParseUserID(frame.UserID)
	if err != nil {
		c.sendError(ctx, "invalid user id")
		return
	}

	client, cctx, release := c.gamePool.GameClientSharded(ctx, userID)
	defer release()

	resp, err := client.ProcessClick(cctx, &rpccodec.ProcessClickRequest{
		UserID:     frame.UserID,
		ExternalID: frame.ExternalID,
		SessionID:  frame.SessionID,
		Timestamp:  time.Now().UnixMilli(),
		ClickCount: frame.ClickCount,
	})
	if err != nil {
		if apierrors.Is(err, apierrors.RateLimitExceeded) {
			c.send(ctx, Frame{Type: TypeRateLimited, Message: err.Error()})
			return
		}
		c.sendError(ctx, "click failed")
		return
	}
	if resp.RateLimited {
		c.send(ctx, Frame{Type: TypeRateLimited, Message: resp.Message})
		return
	}

	c.send(ctx, Frame{
		Type:   TypeScoreUpdate,
		Score:  resp.NewTotal,
		Rank:   resp.CurrentRank,
		UserID: frame.UserID,
	})
}

func (c *Connection) handleRefresh(ctx context.Context, frame Frame) {
	client, cctx, release := c.lbPool.LeaderboardClientRoundRobin(ctx)
	defer release()

	resp, err := client.GetUserRank(cctx, &rpccodec.GetUserRankRequest{UserID: frame.UserID})
	if err != nil {
		c.sendError(ctx, "refresh failed")
		return
	}
	c.send(ctx, Frame{
		Type:   TypeScoreUpdate,
		Score:  resp.TotalClicks,
		Rank:   resp.Rank,
		UserID: frame.UserID,
	})
}

func (c *Connection) sendError(ctx context.Context, message string) {
	c.send(ctx, Frame{Type: TypeError, Message: message})
}

func (c *Connection) send(ctx context.Context, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		level.Error(c.logger).Log("msg", "encoding frame failed", "err", err)
		return
	}
	if err := c.writeRaw(payload); err != nil {
		level.Warn(c.logger).Log("msg", "writing frame failed", "err", err)
	}
}

func (c *Connection) writeRaw(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
