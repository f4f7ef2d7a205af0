package cart

import "github.com/wyfcoding/cartd/internal/eventstore"

// RemoveItemCommand removes a single line item from a cart. Grounded
// on original_source/src/domain/cart/remove_item.rs.
type RemoveItemCommand struct {
	CartID string
	ItemID string
}

type removeItemState struct {
	cartExists bool
	itemExists bool
	submitted  bool
}

func (c RemoveItemCommand) Query() eventstore.Query { return CartQuery(c.CartID) }
func (c RemoveItemCommand) Zero() removeItemState   { return removeItemState{} }

func (c RemoveItemCommand) Evolve(s removeItemState, ev eventstore.Event) removeItemState {
	switch ev.Kind {
	case KindCartCreated:
		s.cartExists = true
	case KindCartItemAdded:
		if ev.ItemID != nil && *ev.ItemID == c.ItemID {
			s.itemExists = true
		}
	case KindCartItemRemoved:
		if ev.ItemID != nil && *ev.ItemID == c.ItemID {
			s.itemExists = false
		}
	case KindCartCleared:
		s.itemExists = false
	case KindItemArchived:
		if ev.ItemID != nil && *ev.ItemID == c.ItemID {
			s.itemExists = false
		}
	case KindCartSubmitted:
		s.submitted = true
	}
	return s
}

func (c RemoveItemCommand) Decide(s removeItemState) ([]eventstore.NewEvent, error) {
	if !s.cartExists {
		return nil, errCartDoesNotExist(c.CartID)
	}
	if s.submitted {
		return nil, errCartCannotBeAltered(c.CartID)
	}
	if !s.itemExists {
		return nil, errCannotRemoveItem(c.CartID, c.ItemID)
	}

	return []eventstore.NewEvent{{
		Kind:    KindCartItemRemoved,
		Payload: CartItemRemoved{CartID: c.CartID, ItemID: c.ItemID},
		CartID:  &c.CartID,
		ItemID:  &c.ItemID,
	}}, nil
}
