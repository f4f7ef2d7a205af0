package listener

import (
	"context"
	"time"
)

// Enqueuer is the Retry Queue's write surface as seen by an Automation
// listener: enqueue one task, deduplicated by (taskType, dedupKey) so
// a replayed event never double-enqueues. dedupKey is usually just the
// triggering event id formatted as a string, except for carts_with_products'
// fan-out (one PriceChanged event can enqueue several archive_item
// tasks, one per affected cart/item, so the event id alone can't be
// the dedup key there — see CartsWithProductsListener).
// Implemented by internal/queue.Queue; declared here instead of
// imported from there so internal/queue never needs to import
// internal/listener back.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType, dedupKey string, triggeringEventID int64, timeout time.Duration, args any) error
}
