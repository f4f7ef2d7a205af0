// Package cart implements the DCB commands, state folds and domain
// events for the shopping cart aggregate: AddItem, RemoveItem,
// ClearCart, SubmitCart, ArchiveItem, ChangePrice and ChangeInventory.
package cart

import "github.com/shopspring/decimal"

// Event kind constants stored in event_log.kind.
const (
	KindCartCreated      = "CartCreated"
	KindCartItemAdded    = "CartItemAdded"
	KindCartItemRemoved  = "CartItemRemoved"
	KindCartCleared      = "CartCleared"
	KindItemArchived     = "ItemArchived"
	KindCartSubmitted    = "CartSubmitted"
	KindCartPublished    = "CartPublished"
	KindCartPubFailed    = "CartPublicationFailed"
	KindInventoryChanged = "InventoryChanged"
	KindPriceChanged     = "PriceChanged"
	KindTaskFailed       = "TaskFailed"
)

// CartCreated is emitted the first time an item is added to a cart.
type CartCreated struct {
	CartID string `json:"cart_id"`
}

// CartItemAdded carries the full line-item snapshot, matching
// original_source/src/domain/cart/add_item.rs's CartItemAdded variant.
type CartItemAdded struct {
	CartID      string          `json:"cart_id"`
	ItemID      string          `json:"item_id"`
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Fingerprint string          `json:"fingerprint"`
}

// CartItemRemoved removes a single line item.
type CartItemRemoved struct {
	CartID string `json:"cart_id"`
	ItemID string `json:"item_id"`
}

// CartCleared removes every line item from a cart.
type CartCleared struct {
	CartID string `json:"cart_id"`
}

// ItemArchived is appended when a priced-out item is removed from a
// cart in response to a PriceChanged event.
type ItemArchived struct {
	CartID              string `json:"cart_id"`
	ItemID              string `json:"item_id"`
	PriceChangedEventID int64  `json:"price_changed_event_id"`
}

// OrderedProduct is a single priced line of a submitted cart.
type OrderedProduct struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
}

// CartSubmitted carries the priced order snapshot, so downstream
// publication needs no further query of the event log.
type CartSubmitted struct {
	CartID         string           `json:"cart_id"`
	OrderedProduct []OrderedProduct `json:"ordered_products"`
	TotalPrice     decimal.Decimal  `json:"total_price"`
}

// CartPublished confirms a successful publish to the published-carts topic.
type CartPublished struct {
	CartID string `json:"cart_id"`
}

// CartPublicationFailed records a publish attempt that exhausted its retries.
type CartPublicationFailed struct {
	CartID string `json:"cart_id"`
}

// InventoryChanged is the normalized form of an inbound inventories Kafka message.
type InventoryChanged struct {
	ProductID string `json:"product_id"`
	Inventory int32  `json:"inventory"`
}

// PriceChanged is the normalized form of an inbound price-changes Kafka message.
type PriceChanged struct {
	ProductID string          `json:"product_id"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

// TaskFailed is an observability event emitted by the retry queue when
// a task exhausts its retries.
type TaskFailed struct {
	TaskType          string `json:"task_type"`
	TriggeringEventID int64  `json:"triggering_event_id"`
}
