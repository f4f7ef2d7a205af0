package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/cartd/internal/eventstore"
)

// AddItemCommand adds a priced line item to a cart, creating the cart
// on its first item. Grounded on
// original_source/src/domain/cart/add_item.rs.
type AddItemCommand struct {
	CartID      string
	Description string
	Image       string
	Price       decimal.Decimal
	ItemID      string
	ProductID   string
	Fingerprint string
}

type addItemState struct {
	cartExists bool
	itemCount  int
	submitted  bool
}

// Query implements decision.Decision.
func (c AddItemCommand) Query() eventstore.Query { return CartQuery(c.CartID) }

// Zero implements decision.Decision.
func (c AddItemCommand) Zero() addItemState { return addItemState{} }

// Evolve implements decision.Decision.
func (c AddItemCommand) Evolve(s addItemState, ev eventstore.Event) addItemState {
	switch ev.Kind {
	case KindCartCreated:
		s.cartExists = true
	case KindCartItemAdded:
		s.itemCount++
	case KindCartItemRemoved:
		s.itemCount--
	case KindCartCleared:
		s.itemCount = 0
	case KindItemArchived:
		s.itemCount--
	case KindCartSubmitted:
		s.submitted = true
	}
	return s
}

// Decide implements decision.Decision.
func (c AddItemCommand) Decide(s addItemState) ([]eventstore.NewEvent, error) {
	if s.submitted {
		return nil, errCartCannotBeAltered(c.CartID)
	}
	if s.itemCount >= cartCapacity {
		return nil, errCartFull(c.CartID)
	}

	var events []eventstore.NewEvent
	if !s.cartExists {
		events = append(events, eventstore.NewEvent{
			Kind:    KindCartCreated,
			Payload: CartCreated{CartID: c.CartID},
			CartID:  &c.CartID,
		})
	}

	events = append(events, eventstore.NewEvent{
		Kind: KindCartItemAdded,
		Payload: CartItemAdded{
			CartID:      c.CartID,
			ItemID:      c.ItemID,
			ProductID:   c.ProductID,
			Description: c.Description,
			Image:       c.Image,
			Price:       c.Price,
			Fingerprint: c.Fingerprint,
		},
		CartID:    &c.CartID,
		ProductID: &c.ProductID,
		ItemID:    &c.ItemID,
	})
	return events, nil
}

// DecodeCartItemAdded unmarshals a CartItemAdded payload.
func DecodeCartItemAdded(payload json.RawMessage) (CartItemAdded, error) {
	var ev CartItemAdded
	err := json.Unmarshal(payload, &ev)
	return ev, err
}
