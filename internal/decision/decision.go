// Package decision implements the Decision Maker: load a Decision's
// declared Query from the event store, fold it into a State, run the
// Decision's pure business logic, and conditionally append the
// resulting events — retrying a bounded number of times when another
// writer committed in the meantime (a Conflict).
//
// Grounded on cqrs/inmem_bus.go's handler-registry style, generalized
// with Go generics instead of reflection since each Decision's State
// type is statically known at the call site, and on retry/retry.go's
// RetryIf for the bounded Conflict-retry loop.
package decision

import (
	"context"

	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/logging"
	"github.com/wyfcoding/cartd/internal/metrics"
	"github.com/wyfcoding/cartd/internal/retry"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// Decision is a DCB command: the state it needs, how to fold events
// into that state, and the pure function deciding which events to
// append. S is the Decision's state shape (often unexported to its
// owning package).
type Decision[S any] interface {
	// Query declares the Dynamic Consistency Boundary: the event
	// store query this Decision's state depends on.
	Query() eventstore.Query
	// Zero returns the state's initial value before any event is folded.
	Zero() S
	// Evolve folds a single committed event into state.
	Evolve(state S, event eventstore.Event) S
	// Decide runs the Decision's business logic against the folded
	// state and returns the events to append, or a DomainError.
	Decide(state S) ([]eventstore.NewEvent, error)
}

// Maker loads, folds, decides and conditionally appends, retrying on
// Conflict with the decision package's shared backoff policy.
type Maker struct {
	store   *eventstore.Store
	logger  *logging.Logger
	metrics *metrics.Metrics
	retry   retry.Config
}

// New builds a Maker. retryCfg controls the bounded Conflict-retry
// loop; pass retry.DefaultConflictRetryConfig() for the spec's default
// of 5 retries (6 attempts in all) with jittered exponential backoff.
func New(store *eventstore.Store, logger *logging.Logger, m *metrics.Metrics, retryCfg retry.Config) *Maker {
	return &Maker{store: store, logger: logger.With("decision"), metrics: m, retry: retryCfg}
}

// Make runs d to completion, including Conflict retries. commandName
// is used only for metrics/log labeling.
func Make[S any](ctx context.Context, mk *Maker, commandName string, d Decision[S]) ([]eventstore.Event, error) {
	var committed []eventstore.Event

	err := retry.RetryIf(ctx, func() error {
		q := d.Query()

		version, history, err := loadHistory(ctx, mk.store, q)
		if err != nil {
			return err
		}

		state := d.Zero()
		for _, ev := range history {
			state = d.Evolve(state, ev)
		}

		events, err := d.Decide(state)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			committed = nil
			return nil
		}

		committed, err = mk.store.Append(ctx, q, version, events)
		return err
	}, func(err error) bool {
		retryable := xerrors.Is(err, xerrors.KindConflict)
		if retryable && mk.metrics != nil {
			mk.metrics.ConflictRetries.WithLabelValues(commandName).Inc()
		}
		return retryable
	}, mk.retry)

	if err != nil {
		mk.logger.Error("command failed", "command", commandName, "error", err)
		return nil, err
	}
	return committed, nil
}

// loadHistory reads q's full history and derives the Query Version
// directly from the events actually folded — NOT from a separate Head
// query — so the version the caller appends against can never outrun
// what it folded into State even if another writer commits between
// the read finishing and the append starting (that race is exactly
// what the Append-time re-check is there to catch).
func loadHistory(ctx context.Context, store *eventstore.Store, q eventstore.Query) (eventstore.QueryVersion, []eventstore.Event, error) {
	if len(q.Streams) == 0 {
		// Stateless decisions (ChangePriceCommand, ChangeInventoryCommand)
		// declare no streams at all; there is nothing to read or version.
		return eventstore.QueryVersion{}, nil, nil
	}

	events, errs := store.Stream(ctx, q, 0, false, 0)

	var history []eventstore.Event
	for ev := range events {
		history = append(history, ev)
	}
	if err := <-errs; err != nil {
		return nil, nil, err
	}

	version := make(eventstore.QueryVersion, len(q.Streams))
	for _, s := range q.Streams {
		var maxID int64
		for _, ev := range history {
			if !kindIn(ev.Kind, s.Kinds) {
				continue
			}
			if s.Binding.Bound() && !tagMatches(ev, s.Binding) {
				continue
			}
			if ev.EventID > maxID {
				maxID = ev.EventID
			}
		}
		version[s.Key()] = maxID
	}
	return version, history, nil
}

func kindIn(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func tagMatches(ev eventstore.Event, b eventstore.Binding) bool {
	var tag *string
	switch b.Column {
	case "cart_id":
		tag = ev.CartID
	case "product_id":
		tag = ev.ProductID
	case "item_id":
		tag = ev.ItemID
	}
	return tag != nil && *tag == b.Value
}
