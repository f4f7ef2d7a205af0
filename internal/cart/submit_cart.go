package cart

import (
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/cartd/internal/eventstore"
)

// SubmitCartCommand locks in a cart's current contents as a priced
// order. Grounded on original_source/src/domain/cart/submit_cart.rs.
type SubmitCartCommand struct {
	CartID string
}

type submitCartState struct {
	cartExists   bool
	submitted    bool
	cartItems    map[string]string          // item_id -> product_id
	productPrice map[string]decimal.Decimal // product_id -> price
}

func (c SubmitCartCommand) Query() eventstore.Query { return CartQuery(c.CartID) }

func (c SubmitCartCommand) Zero() submitCartState {
	return submitCartState{
		cartItems:    make(map[string]string),
		productPrice: make(map[string]decimal.Decimal),
	}
}

func (c SubmitCartCommand) Evolve(s submitCartState, ev eventstore.Event) submitCartState {
	switch ev.Kind {
	case KindCartCreated:
		s.cartExists = true
	case KindCartItemAdded:
		if payload, err := DecodeCartItemAdded(ev.Payload); err == nil {
			s.cartItems[payload.ItemID] = payload.ProductID
			s.productPrice[payload.ProductID] = payload.Price
		}
	case KindCartItemRemoved:
		if ev.ItemID != nil {
			if productID, ok := s.cartItems[*ev.ItemID]; ok {
				delete(s.productPrice, productID)
				delete(s.cartItems, *ev.ItemID)
			}
		}
	case KindCartCleared:
		s.cartItems = make(map[string]string)
		s.productPrice = make(map[string]decimal.Decimal)
	case KindItemArchived:
		if ev.ItemID != nil {
			if productID, ok := s.cartItems[*ev.ItemID]; ok {
				delete(s.productPrice, productID)
				delete(s.cartItems, *ev.ItemID)
			}
		}
	case KindCartSubmitted:
		s.submitted = true
	}
	return s
}

func (c SubmitCartCommand) Decide(s submitCartState) ([]eventstore.NewEvent, error) {
	if !s.cartExists {
		return nil, errCartDoesNotExist(c.CartID)
	}
	if len(s.cartItems) == 0 {
		return nil, errCannotSubmitEmptyCart(c.CartID)
	}
	if s.submitted {
		return nil, errCannotSubmitCartTwice(c.CartID)
	}

	// One OrderedProduct per cart line item (not deduplicated by
	// product_id), matching submit_cart.rs's `cart_items.values().map(...)`.
	orderedProduct := make([]OrderedProduct, 0, len(s.cartItems))
	total := decimal.Zero
	for _, productID := range s.cartItems {
		price := s.productPrice[productID]
		orderedProduct = append(orderedProduct, OrderedProduct{ProductID: productID, Price: price})
		total = total.Add(price)
	}

	return []eventstore.NewEvent{{
		Kind: KindCartSubmitted,
		Payload: CartSubmitted{
			CartID:         c.CartID,
			OrderedProduct: orderedProduct,
			TotalPrice:     total,
		},
		CartID: &c.CartID,
	}}, nil
}
