package kafkabridge

import (
	"context"
	"encoding/json"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/decision"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// NewInventoryTranslator decodes an inventories topic message and runs
// ChangeInventoryCommand. Both source Decisions are stateless and
// unconditionally append their event on every call — nothing here
// makes a redelivery a no-op. Duplicate suppression is Bridge's job:
// it skips any message whose offset the kafka_topic checkpoint already
// covers before translate is ever invoked.
func NewInventoryTranslator(mk *decision.Maker) Translator {
	return func(ctx context.Context, payload []byte) error {
		var msg cart.InventoryChangedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return xerrors.PermanentInfra("decode inventories message", err)
		}
		_, err := decision.Make(ctx, mk, "change_inventory", cart.ChangeInventoryCommand{
			ProductID: msg.ProductUUID,
			Inventory: msg.Inventory,
		})
		return err
	}
}

// NewPriceChangeTranslator decodes a price-changes topic message and
// runs ChangePriceCommand.
func NewPriceChangeTranslator(mk *decision.Maker) Translator {
	return func(ctx context.Context, payload []byte) error {
		var msg cart.PriceChangedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return xerrors.PermanentInfra("decode price-changes message", err)
		}
		_, err := decision.Make(ctx, mk, "change_price", cart.ChangePriceCommand{
			ProductID: msg.ProductUUID,
			OldPrice:  msg.OldPrice,
			NewPrice:  msg.NewPrice,
		})
		return err
	}
}
