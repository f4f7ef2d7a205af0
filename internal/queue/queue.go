package queue

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/metrics"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// Queue is the Durable Retry Queue. It satisfies
// internal/listener.Enqueuer structurally (no import of that package
// is needed, avoiding a cycle).
type Queue struct {
	db      *database.DB
	store   *eventstore.Store
	logger  *logging.Logger
	metrics *metrics.Metrics
	cfg     Config
	pool    *Pool

	handlers map[string]Handler
}

// New builds a Queue. store is used only to record TaskFailed
// observability events once a task exhausts its attempts.
func New(db *database.DB, store *eventstore.Store, log *logging.Logger, m *metrics.Metrics, cfg Config) *Queue {
	return &Queue{
		db:       db,
		store:    store,
		logger:   log.With("queue"),
		metrics:  m,
		cfg:      cfg,
		pool:     NewPool(cfg.WorkerCount, cfg.WorkerQueue, log),
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler associates a task type with the function that
// processes it. Call before Run.
func (q *Queue) RegisterHandler(taskType string, h Handler) {
	q.handlers[taskType] = h
}

// Enqueue inserts a new task, silently deduplicating on
// (taskType, dedupKey) via ON CONFLICT DO NOTHING — a replayed event
// that tries to enqueue the same task twice is a no-op, not an error.
func (q *Queue) Enqueue(ctx context.Context, taskType, dedupKey string, triggeringEventID int64, timeout time.Duration, args any) error {
	payload, err := json.Marshal(args)
	if err != nil {
		return xerrors.PermanentInfra("marshal task domain_args", err)
	}

	now := time.Now()
	row := taskRow{
		TaskID:            uuid.Must(uuid.NewV7()).String(),
		TaskType:          taskType,
		DedupKey:          dedupKey,
		TriggeringEventID: triggeringEventID,
		CreatedAt:         now,
		UpdatedAt:         now,
		ScheduledFor:      now,
		NextAttemptAt:     now,
		TimeoutAt:         now.Add(timeout),
		MaxAttempts:       q.cfg.MaxAttempts,
		Status:            statusPending,
		DomainArgs:        payload,
	}

	err = q.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_type"}, {Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return xerrors.TransientInfra("enqueue task", err)
	}
	return nil
}

// AutoMigrate creates the queue table.
func (q *Queue) AutoMigrate() error {
	return q.db.AutoMigrate(&taskRow{})
}

// Run drains the queue until ctx is cancelled: a claim loop on
// cfg.PollInterval feeds claimed tasks to the worker pool, and a
// janitor running every cfg.LeaseThreshold/2 reclaims tasks abandoned
// by a dead worker.
func (q *Queue) Run(ctx context.Context) {
	claimTicker := time.NewTicker(q.cfg.PollInterval)
	defer claimTicker.Stop()
	janitorTicker := time.NewTicker(q.cfg.LeaseThreshold / 2)
	defer janitorTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.pool.Stop()
			return
		case <-claimTicker.C:
			q.claimAndDispatch(ctx)
		case <-janitorTicker.C:
			q.reclaimAbandoned(ctx)
		}
	}
}

func (q *Queue) claimAndDispatch(ctx context.Context) {
	rows, err := q.claimBatch(ctx)
	if err != nil {
		q.logger.Error("claim batch failed", "error", err)
		return
	}
	for _, row := range rows {
		row := row
		if err := q.pool.Submit(ctx, func(ctx context.Context) { q.process(ctx, row) }); err != nil {
			q.logger.Warn("failed to submit claimed task to pool", "task_id", row.TaskID, "error", err)
		}
	}
}

// claimBatch atomically selects up to cfg.ClaimBatchSize due Pending
// rows with FOR UPDATE SKIP LOCKED (so a concurrent claimer never
// blocks on or double-claims the same row) and flips them to Running
// in the same transaction.
func (q *Queue) claimBatch(ctx context.Context) ([]taskRow, error) {
	var rows []taskRow
	now := time.Now()

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", statusPending, now).
			Order("next_attempt_at").
			Limit(q.cfg.ClaimBatchSize).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.TaskID
		}
		return tx.Model(&taskRow{}).Where("task_id IN ?", ids).
			Updates(map[string]any{"status": statusRunning, "updated_at": now}).Error
	})
	if err != nil {
		return nil, xerrors.TransientInfra("claim task batch", err)
	}
	if q.metrics != nil {
		for _, r := range rows {
			q.metrics.QueueClaimed.WithLabelValues(r.TaskType).Inc()
		}
	}
	return rows, nil
}

func (q *Queue) process(ctx context.Context, row taskRow) {
	if time.Now().After(row.TimeoutAt) {
		q.fail(ctx, row, xerrors.TaskFailure("task exceeded its deadline", nil))
		return
	}

	handler, ok := q.handlers[row.TaskType]
	if !ok {
		q.logger.Error("no handler registered for task type", "task_type", row.TaskType)
		q.fail(ctx, row, xerrors.PermanentInfra("no handler registered", nil))
		return
	}

	start := time.Now()
	err := handler(ctx, row.DomainArgs)
	elapsed := time.Since(start)

	if err == nil {
		q.succeed(ctx, row)
		if q.metrics != nil {
			q.metrics.QueueLatency.WithLabelValues(row.TaskType, "success").Observe(elapsed.Seconds())
		}
		return
	}

	if q.metrics != nil {
		q.metrics.QueueLatency.WithLabelValues(row.TaskType, "error").Observe(elapsed.Seconds())
	}

	row.FailedAttempts++
	if row.FailedAttempts >= row.MaxAttempts || time.Now().After(row.TimeoutAt) {
		q.fail(ctx, row, err)
		return
	}
	q.retry(ctx, row, err)
}

func (q *Queue) succeed(ctx context.Context, row taskRow) {
	err := q.db.WithContext(ctx).Model(&taskRow{}).Where("task_id = ?", row.TaskID).
		Updates(map[string]any{"status": statusSucceeded, "updated_at": time.Now()}).Error
	if err != nil {
		q.logger.Error("failed to mark task succeeded", "task_id", row.TaskID, "error", err)
	}
}

func (q *Queue) retry(ctx context.Context, row taskRow, cause error) {
	backoff := q.backoffFor(row.FailedAttempts)
	next := time.Now().Add(backoff)
	err := q.db.WithContext(ctx).Model(&taskRow{}).Where("task_id = ?", row.TaskID).
		Updates(map[string]any{
			"status":          statusPending,
			"failed_attempts": row.FailedAttempts,
			"next_attempt_at": next,
			"updated_at":      time.Now(),
		}).Error
	if err != nil {
		q.logger.Error("failed to schedule task retry", "task_id", row.TaskID, "error", err)
	}
	q.logger.Warn("task failed, retry scheduled", "task_id", row.TaskID, "task_type", row.TaskType, "attempt", row.FailedAttempts, "next_attempt_at", next, "error", cause)
}

func (q *Queue) fail(ctx context.Context, row taskRow, cause error) {
	err := q.db.WithContext(ctx).Model(&taskRow{}).Where("task_id = ?", row.TaskID).
		Updates(map[string]any{"status": statusFailed, "updated_at": time.Now()}).Error
	if err != nil {
		q.logger.Error("failed to mark task failed", "task_id", row.TaskID, "error", err)
	}
	q.logger.Error("task exhausted retries", "task_id", row.TaskID, "task_type", row.TaskType, "error", cause)

	if q.metrics != nil {
		q.metrics.QueueFailed.WithLabelValues(row.TaskType).Inc()
	}

	if q.store == nil {
		return
	}
	_, appendErr := q.store.AppendWithoutValidation(ctx, []eventstore.NewEvent{{
		Kind: cart.KindTaskFailed,
		Payload: cart.TaskFailed{
			TaskType:          row.TaskType,
			TriggeringEventID: row.TriggeringEventID,
		},
	}})
	if appendErr != nil {
		q.logger.Error("failed to append TaskFailed event", "task_id", row.TaskID, "error", appendErr)
	}
}

func (q *Queue) backoffFor(attempt int) time.Duration {
	backoff := float64(q.cfg.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= q.cfg.Multiplier
	}
	jitter := (rand.Float64()*2 - 1) * 0.2 * backoff
	backoff += jitter
	return min(time.Duration(backoff), q.cfg.MaxBackoff)
}

// reclaimAbandoned resets Running rows whose lease has expired
// (the worker that claimed them died or hung) back to Pending.
func (q *Queue) reclaimAbandoned(ctx context.Context) {
	cutoff := time.Now().Add(-q.cfg.LeaseThreshold)
	err := q.db.WithContext(ctx).Model(&taskRow{}).
		Where("status = ? AND updated_at < ?", statusRunning, cutoff).
		Updates(map[string]any{"status": statusPending, "updated_at": time.Now()}).Error
	if err != nil {
		q.logger.Error("janitor failed to reclaim abandoned tasks", "error", err)
	}
}
