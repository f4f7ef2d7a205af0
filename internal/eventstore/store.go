package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// Store is the Postgres-backed DCB event log. It talks to the database
// directly through database/sql rather than through GORM: the append path
// needs an exact, auditable SQL shape (one INSERT ... RETURNING inside a
// transaction that also re-checks the query version), the kind of query
// raw database/sql expresses more directly than an ORM builder.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewStore opens dsn and ensures the event_log schema exists.
func NewStore(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int, logger *logging.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerrors.PermanentInfra("open event store database", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.TransientInfra("ping event store database", err)
	}

	if _, err := db.ExecContext(ctx, querySchema); err != nil {
		db.Close()
		return nil, xerrors.PermanentInfra("ensure event_log schema", err)
	}

	return &Store{db: db, logger: logger.With("eventstore")}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw *sql.DB backing the event log. The kafka bridge
// and the queue do not use it: they write their own tables through
// their separate GORM connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

func whereForQuery(q Query, argOffset int) (string, []any) {
	clauses := make([]string, len(q.Streams))
	var args []any
	offset := argOffset
	for i, stream := range q.Streams {
		clause, streamArgs := stream.whereClause(offset)
		clauses[i] = "(" + clause + ")"
		args = append(args, streamArgs...)
		offset += len(streamArgs)
	}
	return strings.Join(clauses, " OR "), args
}

// Head returns the current Query Version without reading any event rows.
func (s *Store) Head(ctx context.Context, q Query) (QueryVersion, error) {
	return s.headTx(ctx, s.db, q)
}

type queryExecer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) headTx(ctx context.Context, tx queryExecer, q Query) (QueryVersion, error) {
	version := make(QueryVersion, len(q.Streams))
	for _, stream := range q.Streams {
		clause, args := stream.whereClause(0)
		row := tx.QueryRowContext(ctx, fmt.Sprintf(queryMaxEventID, clause), args...)
		var maxID int64
		if err := row.Scan(&maxID); err != nil {
			return nil, xerrors.TransientInfra("compute query head", err)
		}
		version[stream.Key()] = maxID
	}
	return version, nil
}

// Append conditionally commits events: it recomputes q's Query Version
// inside the same transaction and fails with a Conflict if it has moved
// past expected — no new events matching q may have been committed since
// the caller folded its State.
func (s *Store) Append(ctx context.Context, q Query, expected QueryVersion, events []NewEvent) ([]Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, xerrors.TransientInfra("begin append transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	current, err := s.headTx(ctx, tx, q)
	if err != nil {
		return nil, err
	}
	if !current.Equal(expected) {
		return nil, xerrors.Conflict(fmt.Sprintf("query version mismatch: expected %s, got %s", expected, current))
	}

	committed, err := insertEvents(ctx, tx, events)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, xerrors.TransientInfra("commit append transaction", err)
	}
	return committed, nil
}

// AppendWithoutValidation skips the version check entirely. Used by the
// Kafka inbound translators (the event they append isn't gated by a prior
// read) and by the publish_cart task handler (the Kafka write already
// happened; the append can't be allowed to fail on a conflict it has no
// way to resolve).
func (s *Store) AppendWithoutValidation(ctx context.Context, events []NewEvent) ([]Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, xerrors.TransientInfra("begin append-without-validation transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	committed, err := insertEvents(ctx, tx, events)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, xerrors.TransientInfra("commit append-without-validation transaction", err)
	}
	return committed, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, events []NewEvent) ([]Event, error) {
	committed := make([]Event, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, xerrors.Domain(fmt.Sprintf("marshal %s payload: %v", e.Kind, err))
		}

		var id int64
		var committedAt time.Time
		row := tx.QueryRowContext(ctx, queryInsertEvent, e.Kind, payload, e.CartID, e.ProductID, e.ItemID)
		if err := row.Scan(&id, &committedAt); err != nil {
			return nil, xerrors.TransientInfra("insert event", err)
		}

		committed = append(committed, Event{
			EventID:     id,
			Kind:        e.Kind,
			Payload:     payload,
			CartID:      e.CartID,
			ProductID:   e.ProductID,
			ItemID:      e.ItemID,
			CommittedAt: committedAt,
		})
	}
	return committed, nil
}

const streamBatchSize = 500

// Stream replays q's history in event_id order starting just after the
// point identified by afterEventID, then — if tail is true — keeps polling
// for newly committed events until ctx is cancelled. Styled after
// messagequeue/kafka's consumer loop: poll, check ctx.Done(), sleep on an
// idle tick rather than busy-spinning.
func (s *Store) Stream(ctx context.Context, q Query, afterEventID int64, tail bool, pollInterval time.Duration) (<-chan Event, <-chan error) {
	events := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		cursor := afterEventID
		var ticker *time.Ticker
		if tail {
			if pollInterval <= 0 {
				pollInterval = time.Second
			}
			ticker = time.NewTicker(pollInterval)
			defer ticker.Stop()
		}

		for {
			batch, err := s.selectAfter(ctx, q, cursor, streamBatchSize)
			if err != nil {
				errs <- err
				return
			}

			for _, ev := range batch {
				select {
				case events <- ev:
					cursor = ev.EventID
				case <-ctx.Done():
					return
				}
			}

			if len(batch) == streamBatchSize {
				continue // more historical rows queued up, skip the poll wait
			}
			if !tail {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}

func (s *Store) selectAfter(ctx context.Context, q Query, afterEventID int64, limit int) ([]Event, error) {
	// $1 and $2 are afterEventID and limit; stream predicates start at $3.
	where, streamArgs := whereForQuery(q, 2)
	sqlText := fmt.Sprintf(querySelectAfter, where)

	args := make([]any, 0, 2+len(streamArgs))
	args = append(args, afterEventID, limit)
	args = append(args, streamArgs...)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, xerrors.TransientInfra("stream events", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.EventID, &ev.Kind, &ev.Payload, &ev.CartID, &ev.ProductID, &ev.ItemID, &ev.CommittedAt); err != nil {
			return nil, xerrors.TransientInfra("scan streamed event", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
