// Command gameservice boots the game-service gRPC binary: click ingestion,
// sessions, and user registration over the durable store, staging one
// shard of the click accumulator.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"google.golang.org/grpc"

	"github.com/clickgame/backend/internal/config"
	"github.com/clickgame/backend/internal/eventlog"
	"github.com/clickgame/backend/internal/gameserver"
	"github.com/clickgame/backend/internal/ranking"
	"github.com/clickgame/backend/internal/ratelimit"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/session"
	"github.com/clickgame/backend/internal/shardacc"
	"github.com/clickgame/backend/internal/store"
	"github.com/clickgame/backend/internal/telemetry"
)

const eventTopic = "clicks:stream"

func main() {
	logger := telemetry.NewLogger("gameservice")
	metrics := telemetry.NewMetrics()

	cfg, err := config.FromEnv()
	if err != nil {
		level.Error(logger).Log("msg", "loading config failed", "err", err)
		os.Exit(1)
	}

	repo, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		level.Error(logger).Log("msg", "connecting to database failed", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	redisClient := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisURL}})
	defer redisClient.Close()

	kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
	if err != nil {
		level.Error(logger).Log("msg", "connecting to kafka failed", "err", err)
		os.Exit(1)
	}
	defer kafkaClient.Close()

	limiter := ratelimit.New(redisClient, cfg.ClickRateLimit, 200*time.Millisecond)
	acc := shardacc.New(redisClient, repo, cfg.InstanceID, metrics)
	sessions := session.New(repo, cfg.SessionTimeout)
	rank := ranking.New(redisClient)
	publisher := eventlog.NewPublisher(kafkaClient, eventTopic)

	srv := gameserver.New(repo, limiter, acc, sessions, rank, metrics, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sessions.RunReaper(ctx, func(n int64) {
		metrics.ReaperEvictions.Add(float64(n))
		level.Info(logger).Log("msg", "reaped stale sessions", "count", n)
	})
	go runFlushLoop(ctx, acc, repo, publisher, cfg.ClickBatchFlushInterval, metrics, logger)
	go serveMetrics(cfg.MetricsPort, logger)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(rpccodec.UnaryTimeout(500 * time.Millisecond)))
	rpccodec.RegisterGameServer(grpcServer, srv)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GameServicePort))
	if err != nil {
		level.Error(logger).Log("msg", "binding listener failed", "err", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	level.Info(logger).Log("msg", "game service listening", "port", cfg.GameServicePort, "shard", cfg.InstanceID)
	if err := grpcServer.Serve(lis); err != nil {
		level.Error(logger).Log("msg", "grpc server stopped", "err", err)
	}
}

// runFlushLoop drains the shard accumulator on a tick, then appends
// one event-log record per user carrying their post-increment total
//. A publish failure is logged and not retried in the
// hot path — the next flush or leaderboard refresh reconciles.
func runFlushLoop(ctx context.Context, acc *shardacc.Accumulator, repo store.Repository, publisher *eventlog.Publisher, period time.Duration, metrics *telemetry.Metrics, logger log.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			totals, err := acc.Flush(ctx)
			if err != nil {
				level.Error(logger).Log("msg", "shard flush failed", "err", err)
				continue
			}
			for userID, total := range totals {
				user, err := repo.GetUserByID(ctx, userID)
				if err != nil {
					continue // deleted concurrently: non-fatal if the user was removed mid-flush
				}
				if _, err := publisher.Publish(ctx, userID, user.Username, total); err != nil {
					metrics.EventPublishFailures.Inc()
					level.Error(logger).Log("msg", "publishing event record failed", "user", userID, "err", err)
				}
			}
		}
	}
}

func serveMetrics(port int, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		level.Error(logger).Log("msg", "metrics server stopped", "err", err)
	}
}
