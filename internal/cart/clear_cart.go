package cart

import "github.com/wyfcoding/cartd/internal/eventstore"

// ClearCartCommand empties every line item from a cart. Grounded on
// original_source/src/domain/cart/clear_cart.rs.
type ClearCartCommand struct {
	CartID string
}

type clearCartState struct {
	cartExists bool
	submitted  bool
}

func (c ClearCartCommand) Query() eventstore.Query { return CartQuery(c.CartID) }
func (c ClearCartCommand) Zero() clearCartState    { return clearCartState{} }

func (c ClearCartCommand) Evolve(s clearCartState, ev eventstore.Event) clearCartState {
	switch ev.Kind {
	case KindCartCreated:
		s.cartExists = true
	case KindCartSubmitted:
		s.submitted = true
	}
	return s
}

func (c ClearCartCommand) Decide(s clearCartState) ([]eventstore.NewEvent, error) {
	if s.submitted {
		return nil, errCartCannotBeAltered(c.CartID)
	}
	if !s.cartExists {
		return nil, errCartDoesNotExist(c.CartID)
	}

	return []eventstore.NewEvent{{
		Kind:    KindCartCleared,
		Payload: CartCleared{CartID: c.CartID},
		CartID:  &c.CartID,
	}}, nil
}
