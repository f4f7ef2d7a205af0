package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

const archiveItemTimeout = 5 * time.Minute

// cartsWithProductsRow indexes every open line item by product, so a
// PriceChanged event can find every cart carrying that product without
// scanning cart_items by hand. Grounded on
// original_source/src/domain/cart/carts_with_products.rs's
// CartsWithProductsReadModel.
type cartsWithProductsRow struct {
	CartID      string `gorm:"column:cart_id;primaryKey"`
	ItemID      string `gorm:"column:item_id;primaryKey"`
	ProductID   string `gorm:"column:product_id;primaryKey"`
	LastEventID int64  `gorm:"column:last_event_id"`
}

func (cartsWithProductsRow) TableName() string { return "carts_with_products" }

// CartsWithProductsListener is a Projection/Automation hybrid: it
// keeps the carts_with_products index current from CartStream, and on
// PriceChanged fans out one archive_item task per affected cart/item —
// the Serializing Stream Union CartStream ⊕ PricingStream. Grounded
// on original_source/src/domain/cart/carts_with_products.rs's
// projection plus archive_item.rs's archive_product_processor, moved
// from a synchronous per-event decider call to the Retry Queue so a
// slow or failing archive doesn't block this listener's checkpoint.
type CartsWithProductsListener struct {
	db    *database.DB
	queue Enqueuer
}

func NewCartsWithProductsListener(db *database.DB, queue Enqueuer) *CartsWithProductsListener {
	return &CartsWithProductsListener{db: db, queue: queue}
}

func (l *CartsWithProductsListener) ID() string { return "carts_with_products" }

func (l *CartsWithProductsListener) Query() eventstore.Query { return cart.CartsWithProductsQuery() }

func (l *CartsWithProductsListener) Handle(ctx context.Context, ev eventstore.Event) error {
	switch ev.Kind {
	case cart.KindCartItemAdded:
		var payload cart.CartItemAdded
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return xerrors.Domain("decode CartItemAdded payload").WithContext("event_id", ev.EventID)
		}
		row := cartsWithProductsRow{
			CartID:      payload.CartID,
			ItemID:      payload.ItemID,
			ProductID:   payload.ProductID,
			LastEventID: ev.EventID,
		}
		return wrapInfra(l.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "item_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_event_id"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Lt{Column: "carts_with_products.last_event_id", Value: ev.EventID},
			}},
		}).Create(&row).Error, "upsert carts_with_products row")

	case cart.KindCartItemRemoved, cart.KindItemArchived:
		if ev.CartID == nil || ev.ItemID == nil {
			return nil
		}
		return wrapInfra(l.db.WithContext(ctx).
			Where("cart_id = ? AND item_id = ? AND last_event_id < ?", *ev.CartID, *ev.ItemID, ev.EventID).
			Delete(&cartsWithProductsRow{}).Error, "delete carts_with_products row")

	case cart.KindCartCleared, cart.KindCartSubmitted:
		if ev.CartID == nil {
			return nil
		}
		return wrapInfra(l.db.WithContext(ctx).
			Where("cart_id = ? AND last_event_id < ?", *ev.CartID, ev.EventID).
			Delete(&cartsWithProductsRow{}).Error, "clear carts_with_products rows for cart")

	case cart.KindPriceChanged:
		return l.fanOutArchive(ctx, ev)
	}
	return nil
}

// fanOutArchive enqueues one archive_item task per cart/item currently
// carrying the repriced product. Each task's dedup key includes
// cart_id and item_id, not just the triggering event id, because a
// single PriceChanged event can affect many carts at once.
func (l *CartsWithProductsListener) fanOutArchive(ctx context.Context, ev eventstore.Event) error {
	var payload cart.PriceChanged
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return xerrors.Domain("decode PriceChanged payload").WithContext("event_id", ev.EventID)
	}

	var rows []cartsWithProductsRow
	if err := l.db.WithContext(ctx).Where("product_id = ?", payload.ProductID).Find(&rows).Error; err != nil {
		return xerrors.TransientInfra("find carts_with_products rows by product_id", err)
	}

	for _, row := range rows {
		args := struct {
			CartID              string `json:"cart_id"`
			ItemID              string `json:"item_id"`
			PriceChangedEventID int64  `json:"price_changed_event_id"`
		}{CartID: row.CartID, ItemID: row.ItemID, PriceChangedEventID: ev.EventID}

		dedupKey := fmt.Sprintf("%s:%s:%d", row.CartID, row.ItemID, ev.EventID)
		if err := l.queue.Enqueue(ctx, "archive_item", dedupKey, ev.EventID, archiveItemTimeout, args); err != nil {
			return xerrors.TransientInfra("enqueue archive_item task", err)
		}
	}
	return nil
}
