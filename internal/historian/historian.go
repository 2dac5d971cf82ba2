// internal/historian/historian.go is an asynchronous historian that pops round actions
// from a Redis queue and persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store persists round history.
type Store interface {
	InsertRoundActions(ctx context.Context, batch []models.RoundAction) error
	MarkRoundAbandoned(ctx context.Context, roundID uuid.UUID) (bool, error)
}

// Options configures a Service. Zero values take the defaults.
type Options struct {
	QueueName     string
	BatchSize     int
	FlushDelay    time.Duration
	Inactivity    time.Duration
	CheckInterval time.Duration
	Clock         clockwork.Clock
	Logger        logrus.FieldLogger
}

func (o *Options) applyDefaults() {
	if o.QueueName == "" {
		o.QueueName = "bingo_round_actions"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = 500 * time.Millisecond
	}
	if o.Inactivity <= 0 {
		o.Inactivity = 10 * time.Minute
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = time.Minute
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// Service moves round actions from Redis into the store and marks rounds
// abandoned once they stop producing actions.
type Service struct {
	rdb   *redis.Client
	store Store
	opts  Options
	log   logrus.FieldLogger

	batchMu sync.Mutex
	batch   []models.RoundAction

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time
}

// NewService builds a historian reading from rdb and writing to store.
func NewService(rdb *redis.Client, store Store, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		rdb:          rdb,
		store:        store,
		opts:         opts,
		log:          opts.Logger,
		batch:        make([]models.RoundAction, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run starts the read, flush and inactivity loops and blocks until ctx ends.
// Whatever is still batched is flushed before it returns.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	for _, loop := range []func(context.Context){s.readRedisLoop, s.flushLoop, s.inactivityLoop} {
		go func(loop func(context.Context)) {
			defer wg.Done()
			loop(ctx)
		}(loop)
	}

	s.log.WithField("queue", s.opts.QueueName).Info("bingo-historian service started")
	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("bingo-historian shut down")
}

// readRedisLoop continuously uses BLPop to retrieve messages from the Redis queue.
func (s *Service) readRedisLoop(ctx context.Context) {
	for ctx.Err() == nil {
		// a bounded BLPop so cancellation is noticed
		res, err := s.rdb.BLPop(ctx, 3*time.Second, s.opts.QueueName).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.log.WithError(err).Error("BLPop failed")
				s.opts.Clock.Sleep(time.Second)
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload
		if len(res) < 2 {
			continue
		}
		if err := s.HandlePayload(ctx, []byte(res[1])); err != nil {
			s.log.WithError(err).Warn("Invalid round action record")
		}
	}
}

// HandlePayload decodes one queued record and batches it.
func (s *Service) HandlePayload(ctx context.Context, payload []byte) error {
	var rec models.RoundAction
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("decode round action: %w", err)
	}
	if rec.RoundID == uuid.Nil {
		return fmt.Errorf("round action without round id")
	}
	s.trackActivity(rec)
	s.appendToBatch(ctx, rec)
	return nil
}

func (s *Service) trackActivity(rec models.RoundAction) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	switch rec.ActionType {
	case "round_winner", "all_numbers_called":
		delete(s.lastActivity, rec.RoundID)
	default:
		s.lastActivity[rec.RoundID] = s.opts.Clock.Now()
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (s *Service) appendToBatch(ctx context.Context, rec models.RoundAction) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := s.opts.Clock.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Flush(ctx)
		}
	}
}

// Flush writes the current batch to the store in one call. A failed batch is
// put back in front of newer records and retried on the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batchCopy := make([]models.RoundAction, len(s.batch))
	copy(batchCopy, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.store.InsertRoundActions(ctx, batchCopy); err != nil {
		s.log.WithError(err).WithField("count", len(batchCopy)).Error("Flush to DB failed")
		s.batchMu.Lock()
		s.batch = append(batchCopy, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.log.Debugf("Flushed %d actions to DB.", len(batchCopy))
}

// Pending is the number of records waiting to be flushed.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// inactivityLoop periodically marks rounds that went quiet as abandoned.
func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := s.opts.Clock.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.CheckInactive(ctx)
		}
	}
}

// CheckInactive marks every round idle for longer than the inactivity window.
func (s *Service) CheckInactive(ctx context.Context) {
	now := s.opts.Clock.Now()
	var stale []uuid.UUID
	s.activityMu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.opts.Inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	// pending actions for these rounds must land before the status changes
	if len(stale) > 0 {
		s.Flush(ctx)
	}
	for _, id := range stale {
		changed, err := s.store.MarkRoundAbandoned(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("round", id).Error("Failed to mark round abandoned")
			continue
		}
		if changed {
			s.log.WithField("round", id).Info("Marked round as 'abandoned' due to inactivity.")
		}
	}
}
