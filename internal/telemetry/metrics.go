package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the counters and gauges shared across the ingestion and
// leaderboard pipelines, grounded on friggdb/pool's promauto usage.
type Metrics struct {
	ClicksAdmitted      prometheus.Counter
	ClicksRejected      prometheus.Counter
	FlushBatchSize       prometheus.Histogram
	FlushDeadlockRetries prometheus.Counter
	EventPublishFailures prometheus.Counter
	ReaperEvictions      prometheus.Counter
	WebsocketConnections prometheus.Gauge
	BroadcastDropped     prometheus.Counter
}

// NewMetrics registers every metric against the default Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ClicksAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clickgame_clicks_admitted_total",
			Help: "Clicks admitted by the per-user rate limiter.",
		}),
		ClicksRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clickgame_clicks_rejected_total",
			Help: "Clicks rejected by the per-user rate limiter.",
		}),
		FlushBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clickgame_flush_batch_users",
			Help:    "Number of distinct users applied per flush cycle.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		FlushDeadlockRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clickgame_flush_deadlock_retries_total",
			Help: "Retries triggered by deadlocks during bulk increment.",
		}),
		EventPublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clickgame_event_publish_failures_total",
			Help: "Event-log publish attempts that failed after a successful durable increment.",
		}),
		ReaperEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clickgame_session_reaper_evictions_total",
			Help: "Sessions marked inactive by the stale-session reaper.",
		}),
		WebsocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "clickgame_websocket_connections",
			Help: "Currently open push-gateway websocket connections.",
		}),
		BroadcastDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clickgame_broadcast_dropped_total",
			Help: "Top-N broadcast messages dropped because a subscriber was slow.",
		}),
	}
}
