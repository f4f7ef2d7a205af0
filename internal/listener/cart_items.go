package listener

import (
	"context"
	"encoding/json"

	"gorm.io/gorm/clause"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// cartItemRow is the `cart_items` read-model row, grounded on
// original_source/src/domain/cart/cart_items.rs's CartItem plus the
// last_event_id guard column used throughout the Rust projections.
type cartItemRow struct {
	CartID      string `gorm:"column:cart_id;primaryKey"`
	ItemID      string `gorm:"column:item_id;primaryKey"`
	ProductID   string `gorm:"column:product_id"`
	Description string `gorm:"column:description"`
	Image       string `gorm:"column:image"`
	Price       string `gorm:"column:price"`
	Fingerprint string `gorm:"column:fingerprint"`
	LastEventID int64  `gorm:"column:last_event_id"`
}

func (cartItemRow) TableName() string { return "cart_items" }

// CartItemsListener maintains the cart_items table: one row per open
// line item across every cart, so a shopper's current basket can be
// read without replaying CartStream. Grounded on
// original_source/src/domain/cart/cart_items.rs's apply_event fold,
// reimplemented as SQL upserts/deletes guarded by last_event_id
// instead of an in-memory fold.
type CartItemsListener struct {
	db *database.DB
}

func NewCartItemsListener(db *database.DB) *CartItemsListener {
	return &CartItemsListener{db: db}
}

func (l *CartItemsListener) ID() string { return "cart_items" }

func (l *CartItemsListener) Query() eventstore.Query { return cart.AllCartsQuery() }

// Truncate empties the read model for the --reset-cart-items flag.
func (l *CartItemsListener) Truncate(ctx context.Context) error {
	return l.db.WithContext(ctx).Exec("TRUNCATE TABLE cart_items").Error
}

func (l *CartItemsListener) Handle(ctx context.Context, ev eventstore.Event) error {
	switch ev.Kind {
	case cart.KindCartCreated:
		return nil // the cart itself has no row in this model, only its items

	case cart.KindCartItemAdded:
		var payload cart.CartItemAdded
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return xerrors.Domain("decode CartItemAdded payload").WithContext("event_id", ev.EventID)
		}
		row := cartItemRow{
			CartID:      payload.CartID,
			ItemID:      payload.ItemID,
			ProductID:   payload.ProductID,
			Description: payload.Description,
			Image:       payload.Image,
			Price:       payload.Price.String(),
			Fingerprint: payload.Fingerprint,
			LastEventID: ev.EventID,
		}
		return wrapInfra(l.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_id", "description", "image", "price", "fingerprint", "last_event_id",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Lt{Column: "cart_items.last_event_id", Value: ev.EventID},
			}},
		}).Create(&row).Error, "upsert cart_items row")

	case cart.KindCartItemRemoved, cart.KindItemArchived:
		if ev.ItemID == nil {
			return nil
		}
		return wrapInfra(l.db.WithContext(ctx).
			Where("cart_id = ? AND item_id = ? AND last_event_id < ?", *ev.CartID, *ev.ItemID, ev.EventID).
			Delete(&cartItemRow{}).Error, "delete cart_items row")

	case cart.KindCartCleared, cart.KindCartSubmitted:
		if ev.CartID == nil {
			return nil
		}
		return wrapInfra(l.db.WithContext(ctx).
			Where("cart_id = ? AND last_event_id < ?", *ev.CartID, ev.EventID).
			Delete(&cartItemRow{}).Error, "clear cart_items rows for cart")
	}
	return nil
}

func wrapInfra(err error, msg string) error {
	if err == nil {
		return nil
	}
	return xerrors.TransientInfra(msg, err)
}
