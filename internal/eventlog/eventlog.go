// Package eventlog implements the Publisher and Consumer halves of the
// append-only record of per-user new-total events that feeds the ranking
// index. It is backed by Kafka via franz-go rather than by the Redis
// instance that holds staging and rate-limit state, so a broker outage is
// isolated from the staging/rate-limit paths.
package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/clickgame/backend/internal/apierrors"
	"github.com/clickgame/backend/internal/id"
)

// Record is one append-only entry: a user's post-increment total at the
// moment it was published.
type Record struct {
	UserID      id.UserID `json:"user_id"`
	Username    string    `json:"username"`
	TotalClicks int64     `json:"total_clicks"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher appends Records to the log.
type Publisher struct {
	client *kgo.Client
	topic  string
}

func NewPublisher(client *kgo.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Publish appends one record and returns its assigned partition offset.
// Failures are surfaced to the caller; the durable increment is not rolled
// back on a publish failure — the record is reconstructable from the
// store on the next flush or refresh cycle.
func (p *Publisher) Publish(ctx context.Context, user id.UserID, username id.Username, totalClicks int64) (int64, error) {
	rec := Record{
		UserID:      user,
		Username:    username.String(),
		TotalClicks: totalClicks,
		Timestamp:   time.Now(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.EventLog, "encoding event record", err)
	}

	result := p.client.ProduceSync(ctx, &kgo.Record{
		Topic: p.topic,
		Key:   []byte(user.String()),
		Value: payload,
	})
	if err := result.FirstErr(); err != nil {
		return 0, apierrors.Wrap(apierrors.EventLog, "publishing event record", err)
	}
	pr := result[0]
	return pr.Record.Offset, nil
}
