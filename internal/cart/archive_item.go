package cart

import "github.com/wyfcoding/cartd/internal/eventstore"

// ArchiveItemCommand removes a cart line item whose product has had a
// price change, triggered by the carts_with_products automation.
// Naturally idempotent: if the item was already removed or archived,
// state.itemExists is false and Decide returns no events rather than
// an error — matching original_source/src/domain/cart/archive_item.rs's
// nothing_should_happen_if_archive_has_been_processed_prevously test.
type ArchiveItemCommand struct {
	CartID              string
	ItemID              string
	PriceChangedEventID int64
}

type archiveItemState struct {
	cartExists bool
	itemExists bool
	submitted  bool
}

func (c ArchiveItemCommand) Query() eventstore.Query { return CartQuery(c.CartID) }
func (c ArchiveItemCommand) Zero() archiveItemState  { return archiveItemState{} }

func (c ArchiveItemCommand) Evolve(s archiveItemState, ev eventstore.Event) archiveItemState {
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

func (c ArchiveItemCommand) Decide(s archiveItemState) ([]eventstore.NewEvent, error) {
	if s.submitted {
		return nil, errCartCannotBeAltered(c.CartID)
	}
	if !s.cartExists || !s.itemExists {
		return nil, nil
	}

	return []eventstore.NewEvent{{
		Kind: KindItemArchived,
		Payload: ItemArchived{
			CartID:              c.CartID,
			ItemID:              c.ItemID,
			PriceChangedEventID: c.PriceChangedEventID,
		},
		CartID: &c.CartID,
		ItemID: &c.ItemID,
	}}, nil
}
