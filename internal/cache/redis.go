// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list (queue) name for round action logs.
const DefaultQueueName = "bingo_round_actions"

// ConnectRedis opens a client and checks it with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// PublishRoundAction serializes the given record to JSON, then pushes it to the Redis queue.
func PublishRoundAction(ctx context.Context, rdb *redis.Client, queueName string, record models.RoundAction) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundAction: %w", err)
	}
	if err := rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// HistoryPublisher queues round actions in memory and pushes them to Redis from
// its own goroutine, so the hall never waits on the network.
type HistoryPublisher struct {
	rdb     *redis.Client
	queue   string
	log     logrus.FieldLogger
	records chan models.RoundAction
	dropped atomic.Int64
}

// NewHistoryPublisher buffers up to size records. Call Run to start publishing.
func NewHistoryPublisher(rdb *redis.Client, queueName string, size int, logger logrus.FieldLogger) *HistoryPublisher {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &HistoryPublisher{
		rdb:     rdb,
		queue:   queueName,
		log:     logger,
		records: make(chan models.RoundAction, size),
	}
}

// Record queues an action. When the buffer is full the action is dropped.
func (p *HistoryPublisher) Record(action models.RoundAction) {
	select {
	case p.records <- action:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.log.WithField("dropped", n).Warn("History buffer full, dropping round actions")
		}
	}
}

// Dropped is the number of actions discarded because the buffer was full.
func (p *HistoryPublisher) Dropped() int64 { return p.dropped.Load() }

// Run publishes queued actions until ctx is cancelled, then drains what is left.
func (p *HistoryPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case rec := <-p.records:
			p.publish(ctx, rec)
		}
	}
}

func (p *HistoryPublisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-p.records:
			p.publish(ctx, rec)
		default:
			return
		}
	}
}

func (p *HistoryPublisher) publish(ctx context.Context, rec models.RoundAction) {
	if err := PublishRoundAction(ctx, p.rdb, p.queue, rec); err != nil {
		p.log.WithFields(logrus.Fields{
			"round":  rec.RoundID,
			"action": rec.ActionType,
		}).WithError(err).Warn("Failed to publish round action")
	}
}
