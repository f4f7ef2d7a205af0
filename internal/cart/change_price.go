package cart

import (
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/cartd/internal/eventstore"
)

// ChangePriceCommand is a stateless decision: it never reads any
// prior state, always unconditionally emitting PriceChanged. Grounded
// on original_source/src/domain/cart/change_price.rs, whose
// ChangePriceCommand::state_query() returns the disintegrate
// `Stateless` marker.
type ChangePriceCommand struct {
	ProductID string
	OldPrice  decimal.Decimal
	NewPrice  decimal.Decimal
}

func (c ChangePriceCommand) Query() eventstore.Query { return eventstore.Query{} }
func (c ChangePriceCommand) Zero() struct{}          { return struct{}{} }
func (c ChangePriceCommand) Evolve(s struct{}, _ eventstore.Event) struct{} { return s }

func (c ChangePriceCommand) Decide(struct{}) ([]eventstore.NewEvent, error) {
	return []eventstore.NewEvent{{
		Kind: KindPriceChanged,
		Payload: PriceChanged{
			ProductID: c.ProductID,
			OldPrice:  c.OldPrice,
			NewPrice:  c.NewPrice,
		},
		ProductID: &c.ProductID,
	}}, nil
}

// PriceChangedMessage is the Kafka DTO consumed from the price-changes
// topic by the inbound translator.
type PriceChangedMessage struct {
	ProductUUID string          `json:"product_uuid"`
	OldPrice    decimal.Decimal `json:"old_price"`
	NewPrice    decimal.Decimal `json:"new_price"`
}
