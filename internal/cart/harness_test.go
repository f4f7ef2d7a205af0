package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/cartd/internal/eventstore"
)

func decimalFromFloat(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// given folds a sequence of NewEvents (as if already committed, in
// order) into a Decision's zero state — the Go equivalent of
// disintegrate::TestHarness::given(...).when(...).then(...) used
// throughout original_source/src/domain/cart/*.rs.
func given[S any](zero S, evolve func(S, eventstore.Event) S, events ...eventstore.NewEvent) S {
	state := zero
	for i, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			panic(err)
		}
		state = evolve(state, eventstore.Event{
			EventID:   int64(i + 1),
			Kind:      e.Kind,
			Payload:   payload,
			CartID:    e.CartID,
			ProductID: e.ProductID,
			ItemID:    e.ItemID,
		})
	}
	return state
}

func cartCreated(cartID string) eventstore.NewEvent {
	return eventstore.NewEvent{Kind: KindCartCreated, Payload: CartCreated{CartID: cartID}, CartID: &cartID}
}

func cartItemAdded(cartID, itemID, productID string, price float64) eventstore.NewEvent {
	p := decimalFromFloat(price)
	return eventstore.NewEvent{
		Kind: KindCartItemAdded,
		Payload: CartItemAdded{
			CartID: cartID, ItemID: itemID, ProductID: productID,
			Description: "a product", Image: "image.png", Price: p, Fingerprint: "fp",
		},
		CartID: &cartID, ProductID: &productID, ItemID: &itemID,
	}
}

func cartItemRemoved(cartID, itemID string) eventstore.NewEvent {
	return eventstore.NewEvent{Kind: KindCartItemRemoved, Payload: CartItemRemoved{CartID: cartID, ItemID: itemID}, CartID: &cartID, ItemID: &itemID}
}

func cartSubmitted(cartID string) eventstore.NewEvent {
	return eventstore.NewEvent{Kind: KindCartSubmitted, Payload: CartSubmitted{CartID: cartID}, CartID: &cartID}
}

func itemArchived(cartID, itemID string, priceChangedEventID int64) eventstore.NewEvent {
	return eventstore.NewEvent{
		Kind:    KindItemArchived,
		Payload: ItemArchived{CartID: cartID, ItemID: itemID, PriceChangedEventID: priceChangedEventID},
		CartID:  &cartID, ItemID: &itemID,
	}
}
