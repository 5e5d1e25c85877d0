// Package telemetry wires up the process-wide logger and metrics registry
// used by every other package: a structured go-kit logger and a
// promauto-backed metrics registry, shared across all three binaries.
package telemetry

import (
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/time/rate"
)

// NewLogger builds the base logger for a binary, tagging every line with
// its component name and a timestamp.
func NewLogger(component string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "component", component)
	return level.NewFilter(logger, level.AllowInfo())
}

// RateLimitedLogger drops log lines beyond logsPerSecond, grounded on
// pkg/util/log.RateLimitedLogger. Its Log returns no error, so it does not
// satisfy log.Logger, and no package in this module uses it: per-click log
// lines go through the plain logger.
type RateLimitedLogger struct {
	limiter *rate.Limiter
	logger  log.Logger
}

// NewRateLimitedLogger wraps logger with a token-bucket cap of logsPerSecond.
func NewRateLimitedLogger(logsPerSecond int, logger log.Logger) *RateLimitedLogger {
	return &RateLimitedLogger{
		limiter: rate.NewLimiter(rate.Limit(logsPerSecond), 1),
		logger:  logger,
	}
}

// Log emits keyvals through the wrapped logger unless the rate has been exceeded.
func (l *RateLimitedLogger) Log(keyvals ...interface{}) {
	if !l.limiter.AllowN(time.Now(), 1) {
		return
	}
	_ = l.logger.Log(keyvals...)
}
