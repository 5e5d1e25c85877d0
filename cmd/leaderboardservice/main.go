// Command leaderboardservice boots the leaderboard-service gRPC binary:
// event-log consumption, rank lookups, and the materialized top-N
// leaderboard, all over the durable store.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
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
	"github.com/clickgame/backend/internal/leaderboard"
	"github.com/clickgame/backend/internal/leaderboardserver"
	"github.com/clickgame/backend/internal/ranking"
	"github.com/clickgame/backend/internal/rpccodec"
	"github.com/clickgame/backend/internal/store"
	"github.com/clickgame/backend/internal/telemetry"
)

const (
	eventTopic  = "clicks:stream"
	consumerGrp = "leaderboardservice"
)

// clickTally is the eventlog.GlobalCounter this binary feeds: a
// process-wide at-least-once tally of consumed click records. It is kept
// in memory only; nothing reads or exports it, and GetGlobalStats reads
// the durable per-user totals instead.
type clickTally struct{ n atomic.Int64 }

func (c *clickTally) Add(n int64) { c.n.Add(n) }

func main() {
	logger := telemetry.NewLogger("leaderboardservice")
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

	kafkaClient, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.ConsumerGroup(consumerGrp),
		kgo.ConsumeTopics(eventTopic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		level.Error(logger).Log("msg", "connecting to kafka failed", "err", err)
		os.Exit(1)
	}
	defer kafkaClient.Close()

	rank := ranking.New(redisClient)
	materializer := leaderboard.New(repo, cfg.LeaderboardRefreshPeriod)
	tally := &clickTally{}
	consumer := eventlog.NewConsumer(kafkaClient, rank, tally, logger)

	srv := leaderboardserver.New(repo, materializer, rank)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go materializer.Run(ctx, func(err error) {
		level.Error(logger).Log("msg", "materializer refresh failed", "err", err)
	})
	go func() {
		if err := consumer.Run(ctx); err != nil {
			level.Error(logger).Log("msg", "event log consumer stopped", "err", err)
		}
	}()
	go serveMetrics(cfg.MetricsPort, logger)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(rpccodec.UnaryTimeout(500 * time.Millisecond)))
	rpccodec.RegisterLeaderboardServer(grpcServer, srv)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.LeaderboardGRPCPort))
	if err != nil {
		level.Error(logger).Log("msg", "binding listener failed", "err", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	level.Info(logger).Log("msg", "leaderboard service listening", "port", cfg.LeaderboardGRPCPort)
	if err := grpcServer.Serve(lis); err != nil {
		level.Error(logger).Log("msg", "grpc server stopped", "err", err)
	}
}

func serveMetrics(port int, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		level.Error(logger).Log("msg", "metrics server stopped", "err", err)
	}
}
