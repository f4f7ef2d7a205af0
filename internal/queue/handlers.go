package queue

import (
	"context"
	"encoding/json"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/decision"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// archiveItemArgs mirrors the anonymous struct
// internal/listener.CartsWithProductsListener enqueues.
type archiveItemArgs struct {
	CartID              string `json:"cart_id"`
	ItemID              string `json:"item_id"`
	PriceChangedEventID int64  `json:"price_changed_event_id"`
}

// NewArchiveItemHandler runs ArchiveItemCommand through the Decision
// Maker. Naturally idempotent: a redelivered task just finds the item
// already gone and the Decision returns no events.
func NewArchiveItemHandler(mk *decision.Maker) Handler {
	return func(ctx context.Context, domainArgs json.RawMessage) error {
		var args archiveItemArgs
		if err := json.Unmarshal(domainArgs, &args); err != nil {
			return xerrors.PermanentInfra("decode archive_item task args", err)
		}
		_, err := decision.Make(ctx, mk, "archive_item", cart.ArchiveItemCommand{
			CartID:              args.CartID,
			ItemID:              args.ItemID,
			PriceChangedEventID: args.PriceChangedEventID,
		})
		return err
	}
}

// CartPublisher is the outbound Kafka publish step of the publish_cart
// task, implemented by internal/kafkabridge.Producer. Declared here
// instead of imported from there so internal/kafkabridge can depend on
// internal/queue without a cycle.
type CartPublisher interface {
	Publish(ctx context.Context, msg cart.ExternalPublishCart) error
}

// NewPublishCartHandler writes the submitted cart's order snapshot to
// the published-carts topic, then appends CartPublished. Grounded on
// original_source/src/domain/cart/publish_cart.rs's publish_with_events:
// if the store append fails after Kafka already acked the write, the
// handler still returns an error so the task retries — downstream
// consumers dedupe on the message's cart_id, so a duplicate publish on
// retry is harmless.
func NewPublishCartHandler(store *eventstore.Store, publisher CartPublisher) Handler {
	return func(ctx context.Context, domainArgs json.RawMessage) error {
		var args cart.PublishCartTaskArgs
		if err := json.Unmarshal(domainArgs, &args); err != nil {
			return xerrors.PermanentInfra("decode publish_cart task args", err)
		}

		if err := publisher.Publish(ctx, args.Message); err != nil {
			return xerrors.TransientInfra("publish cart to published-carts topic", err)
		}

		cartID := args.Message.CartID
		_, err := store.AppendWithoutValidation(ctx, []eventstore.NewEvent{{
			Kind:    cart.KindCartPublished,
			Payload: cart.CartPublished{CartID: cartID},
			CartID:  &cartID,
		}})
		if err != nil {
			return xerrors.TransientInfra("append CartPublished", err)
		}
		return nil
	}
}
