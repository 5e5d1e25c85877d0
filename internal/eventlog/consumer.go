package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/clickgame/backend/internal/id"
)

// RankingIndex is the capability the consumer needs from the ranking
// index: an absolute-value write, tolerant of out-of-order or duplicate
// delivery.
type RankingIndex interface {
	Update(ctx context.Context, user id.UserID, username id.Username, score int64) error
}

// GlobalCounter receives the best-effort, at-least-once global click tally.
type GlobalCounter interface {
	Add(n int64)
}

const (
	pollBlock  = 5 * time.Second
	batchLimit = 100
)

// Consumer is a named consumer-group member that applies each record to
// the ranking index before acknowledging it, so a crash before ack simply
// redelivers the record (at-least-once; the ranking write is idempotent).
type Consumer struct {
	client  *kgo.Client
	ranking RankingIndex
	counter GlobalCounter
	logger  log.Logger
}

func NewConsumer(client *kgo.Client, ranking RankingIndex, counter GlobalCounter, logger log.Logger) *Consumer {
	return &Consumer{client: client, ranking: ranking, counter: counter, logger: logger}
}

// Run polls batches until ctx is canceled. A sustained store error backs off
// 5s before retrying the same (unacknowledged) batch.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pollCtx, cancel := context.WithTimeout(ctx, pollBlock)
		fetches := c.client.PollRecords(pollCtx, batchLimit)
		cancel()

		fetches.EachError(func(topic string, partition int32, err error) {
			level.Error(c.logger).Log("msg", "fetch error", "topic", topic, "partition", partition, "err", err)
		})

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}

		for {
			err := c.applyBatch(ctx, records)
			if err == nil {
				break
			}
			level.Error(c.logger).Log("msg", "applying batch failed, backing off", "err", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return nil
			}
		}

		if err := c.client.CommitRecords(ctx, records...); err != nil {
			level.Error(c.logger).Log("msg", "committing records failed", "err", err)
		}
	}
}

func (c *Consumer) applyBatch(ctx context.Context, records []*kgo.Record) error {
	for _, r := range records {
		var rec Record
		if err := json.Unmarshal(r.Value, &rec); err != nil {
			level.Warn(c.logger).Log("msg", "dropping unparseable record", "offset", r.Offset, "err", err)
			continue
		}
		username, err := id.ParseUsername(rec.Username)
		if err != nil {
			level.Warn(c.logger).Log("msg", "dropping record with invalid username", "offset", r.Offset, "err", err)
			continue
		}
		if err := c.ranking.Update(ctx, rec.UserID, username, rec.TotalClicks); err != nil {
			return err
		}
		if c.counter != nil {
			c.counter.Add(1)
		}
	}
	return nil
}
