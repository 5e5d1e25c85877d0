// Command gateway boots the push-gateway binary: the websocket front door
// that fans RPC calls out to the game and leaderboard services and
// broadcasts the materialized leaderboard back to every connection.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clickgame/backend/internal/config"
	"github.com/clickgame/backend/internal/push"
	"github.com/clickgame/backend/internal/rpcpool"
	"github.com/clickgame/backend/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The push gateway serves browser and chat-bot clients from any
	// origin; auth happens per-frame via the registered user id, not
	// via cookie/origin trust.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	logger := telemetry.NewLogger("gateway")
	metrics := telemetry.NewMetrics()

	cfg, err := config.FromEnv()
	if err != nil {
		level.Error(logger).Log("msg", "loading config failed", "err", err)
		os.Exit(1)
	}

	gamePool, err := rpcpool.Dial(fmt.Sprintf("localhost:%d", cfg.GameServicePort), cfg.GRPCPoolSize, rpcpool.DefaultCallTimeout)
	if err != nil {
		level.Error(logger).Log("msg", "dialing game service failed", "err", err)
		os.Exit(1)
	}
	defer gamePool.Close()

	lbPool, err := rpcpool.Dial(fmt.Sprintf("localhost:%d", cfg.LeaderboardGRPCPort), cfg.GRPCPoolSize, rpcpool.DefaultCallTimeout)
	if err != nil {
		level.Error(logger).Log("msg", "dialing leaderboard service failed", "err", err)
		os.Exit(1)
	}
	defer lbPool.Close()

	hub := push.NewHub(metrics)
	broadcaster := push.NewBroadcaster(hub, lbPool, cfg.LeaderboardBroadcastPeriod, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go broadcaster.Run(ctx)
	go serveMetrics(cfg.MetricsPort, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			level.Warn(logger).Log("msg", "websocket upgrade failed", "err", err)
			return
		}
		go func() {
			defer conn.Close()
			c := push.NewConnection(conn, hub, gamePool, lbPool, metrics, logger)
			if err := c.Serve(ctx); err != nil {
				level.Debug(logger).Log("msg", "connection closed", "err", err)
			}
		}()
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.WebSocketPort), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	level.Info(logger).Log("msg", "push gateway listening", "port", cfg.WebSocketPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		level.Error(logger).Log("msg", "http server stopped", "err", err)
	}
}

func serveMetrics(port int, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		level.Error(logger).Log("msg", "metrics server stopped", "err", err)
	}
}
