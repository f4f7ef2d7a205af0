// Package listener implements the Projection/Automation Listener
// Runtime: a durable per-listener checkpoint against event_id, at-
// least-once delivery, and per-listener goroutines that read from the
// Event Store instead of Kafka. Grounded on
// messagequeue/kafka/subscriber.go's per-topic goroutine + cancel-func
// bookkeeping, adapted from Kafka topics to Event Store queries.
package listener

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm/clause"

	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/metrics"
	"github.com/wyfcoding/cartd/internal/retry"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// checkpoint is the `listeners` table row tracking a listener's
// last processed event id.
type checkpoint struct {
	ListenerID string `gorm:"primaryKey;column:listener_id"`
	LastOffset int64  `gorm:"column:last_offset"`
}

func (checkpoint) TableName() string { return "listeners" }

// Listener is one Projection or Automation handler: what it reads
// (Query) and what it does with each committed event (Handle). The
// runtime treats both modes identically — a Projection's Handle
// mutates a read-model row, an Automation's Handle enqueues a task —
// the distinction is in what the handler body does, not in how the
// runtime drives it.
type Listener interface {
	ID() string
	Query() eventstore.Query
	Handle(ctx context.Context, ev eventstore.Event) error
}

// Runtime drives a set of registered Listeners, each on its own
// goroutine, from Postgres-durable checkpoints.
type Runtime struct {
	store        *eventstore.Store
	db           *database.DB
	logger       *logging.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
	backoff      retry.Config

	listeners []Listener
}

// handlerBackoff bounds how long a single failed Handle call waits
// before its next attempt. Handler failures are retried indefinitely
// (a stuck listener still must not silently stop advancing forever),
// so this is deliberately not expressed as a bounded retry.Config —
// retry.RetryIf treats a negative MaxRetries as "run once, don't
// retry", which is the opposite of what an unbounded retry needs.
func handlerBackoff() retry.Config {
	return retry.Config{
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		Jitter:         0.2,
	}
}

// New builds a Runtime. pollInterval controls how often a caught-up
// listener re-checks the event store for new events.
func New(store *eventstore.Store, db *database.DB, log *logging.Logger, m *metrics.Metrics, pollInterval time.Duration) *Runtime {
	return &Runtime{
		store:        store,
		db:           db,
		logger:       log.With("listener"),
		metrics:      m,
		pollInterval: pollInterval,
		backoff:      handlerBackoff(),
	}
}

// Register adds l to the set of listeners started by Run.
func (r *Runtime) Register(l Listener) {
	r.listeners = append(r.listeners, l)
}

// Reset truncates a Projection's read-model rows (via truncate) and
// rewinds its checkpoint to zero, so the next Run replays it from the
// beginning of its Query's history. Used by the --reset-cart-items
// startup flag.
func (r *Runtime) Reset(ctx context.Context, listenerID string, truncate func(ctx context.Context) error) error {
	if err := truncate(ctx); err != nil {
		return xerrors.PermanentInfra("truncate read model for reset", err)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listener_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_offset"}),
	}).Create(&checkpoint{ListenerID: listenerID, LastOffset: 0}).Error
}

// Run starts every registered listener and blocks until ctx is
// cancelled or every listener goroutine has exited.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.db.AutoMigrate(&checkpoint{}); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, l := range r.listeners {
		wg.Add(1)
		go func(l Listener) {
			defer wg.Done()
			r.runListener(ctx, l)
		}(l)
	}
	wg.Wait()
	return nil
}

func (r *Runtime) runListener(ctx context.Context, l Listener) {
	log := r.logger.With(l.ID())

	offset, err := r.loadCheckpoint(ctx, l.ID())
	if err != nil {
		log.Error("failed to load checkpoint, listener halting", "error", err)
		return
	}

	events, errs := r.store.Stream(ctx, l.Query(), offset, true, r.pollInterval)
	for ev := range events {
		if err := r.handleWithBackoff(ctx, l, ev); err != nil {
			// Only ctx cancellation escapes handleWithBackoff (a
			// DomainError from a handler is a bug in the projection's
			// fold, not a reason to skip the event and drift the
			// checkpoint) — the listener is shutting down.
			log.Warn("listener stopping mid-event", "event_id", ev.EventID, "error", err)
			return
		}
	}

	if err := <-errs; err != nil && ctx.Err() == nil {
		log.Error("listener stream failed, listener halting", "error", err)
	}
}

// handleWithBackoff retries a single event's Handle+checkpoint-advance
// indefinitely with jittered exponential backoff until it succeeds or
// ctx is cancelled. An event a listener cannot process blocks that
// listener rather than being skipped, so the checkpoint never lies
// about what has actually been applied.
func (r *Runtime) handleWithBackoff(ctx context.Context, l Listener, ev eventstore.Event) error {
	backoff := r.backoff.InitialBackoff
	for attempt := 0; ; attempt++ {
		err := r.handleOne(ctx, l, ev)
		if err == nil {
			return nil
		}

		kind := "infra"
		if xerrors.Is(err, xerrors.KindDomain) {
			kind = "domain"
		}
		if r.metrics != nil {
			r.metrics.ListenerFailures.WithLabelValues(l.ID(), kind).Inc()
		}
		r.logger.With(l.ID()).Error("handler failed, backing off", "attempt", attempt, "event_id", ev.EventID, "error", err)

		sleep := backoff
		if r.backoff.Jitter > 0 {
			sleep += time.Duration((rand.Float64()*2 - 1) * r.backoff.Jitter * float64(backoff))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		backoff = min(time.Duration(float64(backoff)*r.backoff.Multiplier), r.backoff.MaxBackoff)
	}
}

func (r *Runtime) handleOne(ctx context.Context, l Listener, ev eventstore.Event) error {
	if err := l.Handle(ctx, ev); err != nil {
		return err
	}
	return r.advanceCheckpoint(ctx, l.ID(), ev.EventID)
}

func (r *Runtime) loadCheckpoint(ctx context.Context, listenerID string) (int64, error) {
	var cp checkpoint
	err := r.db.WithContext(ctx).Where("listener_id = ?", listenerID).First(&cp).Error
	if err == nil {
		return cp.LastOffset, nil
	}
	// No row yet: start from the beginning of this listener's history.
	if createErr := r.db.WithContext(ctx).Create(&checkpoint{ListenerID: listenerID, LastOffset: 0}).Error; createErr != nil {
		return 0, xerrors.TransientInfra("create listener checkpoint", createErr)
	}
	return 0, nil
}

func (r *Runtime) advanceCheckpoint(ctx context.Context, listenerID string, eventID int64) error {
	err := r.db.WithContext(ctx).Model(&checkpoint{}).
		Where("listener_id = ? AND last_offset < ?", listenerID, eventID).
		Update("last_offset", eventID).Error
	if err != nil {
		return xerrors.TransientInfra("advance listener checkpoint", err)
	}
	return nil
}
