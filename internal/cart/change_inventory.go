package cart

import "github.com/wyfcoding/cartd/internal/eventstore"

// ChangeInventoryCommand is a stateless decision, unconditionally
// emitting InventoryChanged. Grounded on
// original_source/src/domain/cart/change_inventory.rs.
type ChangeInventoryCommand struct {
	ProductID string
	Inventory int32
}

func (c ChangeInventoryCommand) Query() eventstore.Query { return eventstore.Query{} }
func (c ChangeInventoryCommand) Zero() struct{}          { return struct{}{} }
func (c ChangeInventoryCommand) Evolve(s struct{}, _ eventstore.Event) struct{} { return s }

func (c ChangeInventoryCommand) Decide(struct{}) ([]eventstore.NewEvent, error) {
	return []eventstore.NewEvent{{
		Kind:      KindInventoryChanged,
		Payload:   InventoryChanged{ProductID: c.ProductID, Inventory: c.Inventory},
		ProductID: &c.ProductID,
	}}, nil
}

// InventoryChangedMessage is the Kafka DTO consumed from the
// inventories topic by the inbound translator.
type InventoryChangedMessage struct {
	ProductUUID string `json:"product_uuid"`
	Inventory   int32  `json:"inventory"`
}
