package cart

import "github.com/shopspring/decimal"

// ExternalPublishCart is the Kafka DTO published to the published-carts
// topic once a submitted cart's PublishCart task succeeds. Grounded on
// original_source/src/domain/cart/publish_cart.rs's ExternalPublishCart.
type ExternalPublishCart struct {
	CartID         string           `json:"cart_id"`
	OrderedProduct []OrderedProduct `json:"ordered_product"`
	TotalPrice     decimal.Decimal  `json:"total_price"`
}

// PublishCartTaskArgs is the retry queue's domain_args payload for a
// publish_cart task, carrying the already-priced order snapshot so the
// task handler needs no further event store query.
type PublishCartTaskArgs struct {
	TriggeringEventID int64               `json:"triggering_event_id"`
	Message           ExternalPublishCart `json:"message"`
}

// FromCartSubmitted builds the task args for a CartSubmitted event.
func FromCartSubmitted(triggeringEventID int64, ev CartSubmitted) PublishCartTaskArgs {
	return PublishCartTaskArgs{
		TriggeringEventID: triggeringEventID,
		Message: ExternalPublishCart{
			CartID:         ev.CartID,
			OrderedProduct: ev.OrderedProduct,
			TotalPrice:     ev.TotalPrice,
		},
	}
}
