package listener

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

const publishCartTimeout = time.Hour

// CartSubmittedListener is the cart_submitted Automation: one
// publish_cart task per CartSubmitted event, grounded on
// original_source/src/domain/cart/publish_cart.rs's
// CartSubmittedEventHandler.
type CartSubmittedListener struct {
	queue Enqueuer
}

func NewCartSubmittedListener(queue Enqueuer) *CartSubmittedListener {
	return &CartSubmittedListener{queue: queue}
}

func (l *CartSubmittedListener) ID() string { return "cart_submitted" }

func (l *CartSubmittedListener) Query() eventstore.Query { return cart.AllSubmittedQuery() }

func (l *CartSubmittedListener) Handle(ctx context.Context, ev eventstore.Event) error {
	if ev.Kind != cart.KindCartSubmitted {
		return nil
	}
	var payload cart.CartSubmitted
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return xerrors.Domain("decode CartSubmitted payload").WithContext("event_id", ev.EventID)
	}

	args := cart.FromCartSubmitted(ev.EventID, payload)
	dedupKey := strconv.FormatInt(ev.EventID, 10)
	if err := l.queue.Enqueue(ctx, "publish_cart", dedupKey, ev.EventID, publishCartTimeout, args); err != nil {
		return xerrors.TransientInfra("enqueue publish_cart task", err)
	}
	return nil
}
