// Package config loads the environment-driven settings shared by all three
// binaries. Loading is a boot-time concern only: every field is read once in
// FromEnv and passed down by value from then on.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-tunable setting for the three binaries.
type Config struct {
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string

	GameServicePort      int
	LeaderboardGRPCPort  int
	WebSocketPort        int
	MetricsPort          int

	ClickRateLimit int
	NumShards      int
	InstanceID     int

	SessionTimeout             time.Duration
	ClickBatchFlushInterval    time.Duration
	LeaderboardBroadcastPeriod time.Duration
	LeaderboardRefreshPeriod   time.Duration

	GRPCPoolSize int

	EnableCacheRefresh bool
	RunMigrations      bool
}

// FromEnv reads every setting from the environment, applying a sane default
// for anything unset. An unparsable integer setting is returned as an error
// (fatal at boot); an unparsable boolean setting falls back to its default.
func FromEnv() (*Config, error) {
	c := &Config{}
	var err error

	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.RedisURL = os.Getenv("REDIS_URL")
	c.KafkaBrokers = splitCSV(getEnvDefault("KAFKA_BROKERS", "localhost:9092"))

	if c.GameServicePort, err = intEnv("GAME_SERVICE_PORT", 50051); err != nil {
		return nil, err
	}
	if c.LeaderboardGRPCPort, err = intEnv("LEADERBOARD_GRPC_PORT", 50052); err != nil {
		return nil, err
	}
	if c.WebSocketPort, err = intEnv("WEBSOCKET_PORT", 8080); err != nil {
		return nil, err
	}
	if c.MetricsPort, err = intEnv("METRICS_PORT", 9090); err != nil {
		return nil, err
	}
	if c.ClickRateLimit, err = intEnv("CLICK_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if c.NumShards, err = intEnv("NUM_SHARDS", 1); err != nil {
		return nil, err
	}
	if c.InstanceID, err = instanceIndex("INSTANCE_ID"); err != nil {
		return nil, err
	}
	if c.GRPCPoolSize, err = intEnv("GRPC_POOL_SIZE", 20); err != nil {
		return nil, err
	}

	sessionTimeoutSecs, err := intEnv("SESSION_TIMEOUT_SECS", 60)
	if err != nil {
		return nil, err
	}
	c.SessionTimeout = time.Duration(sessionTimeoutSecs) * time.Second

	flushMS, err := intEnv("CLICK_BATCH_FLUSH_INTERVAL_MS", 1000)
	if err != nil {
		return nil, err
	}
	c.ClickBatchFlushInterval = time.Duration(flushMS) * time.Millisecond

	broadcastMS, err := intEnv("LEADERBOARD_BROADCAST_INTERVAL_MS", 1000)
	if err != nil {
		return nil, err
	}
	c.LeaderboardBroadcastPeriod = time.Duration(broadcastMS) * time.Millisecond

	refreshMS, err := intEnv("LEADERBOARD_REFRESH_INTERVAL_MS", 500)
	if err != nil {
		return nil, err
	}
	c.LeaderboardRefreshPeriod = time.Duration(refreshMS) * time.Millisecond

	c.EnableCacheRefresh = boolEnv("ENABLE_CACHE_REFRESH", true)
	c.RunMigrations = boolEnv("RUN_MIGRATIONS", false)

	return c, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// instanceIndex derives the shard index this process owns from the trailing
// integer of INSTANCE_ID (e.g. "game-service-3" -> 3).
func instanceIndex(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	end := len(v)
	start := end
	for start > 0 && v[start-1] >= '0' && v[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, nil
	}
	n, err := strconv.Atoi(v[start:end])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
