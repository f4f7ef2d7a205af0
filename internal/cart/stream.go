package cart

import "github.com/wyfcoding/cartd/internal/eventstore"

const (
	streamCart      = "CartStream"
	streamPricing   = "PricingStream"
	streamInventory = "InventoryStream"
	streamSubmitted = "SubmittedStream"
	streamPublished = "PublishedStream"
)

// cartStreamKinds is the full kind-set of CartStream, grounded on
// original_source/src/domain/events.rs's #[stream(...)] declaration.
var cartStreamKinds = []string{
	KindCartCreated,
	KindCartItemAdded,
	KindCartItemRemoved,
	KindCartCleared,
	KindItemArchived,
	KindCartSubmitted,
}

// CartQuery builds the CartStream query bound to a single cart, used
// by every Decision that mutates one cart's line items.
func CartQuery(cartID string) eventstore.Query {
	return eventstore.NewQuery(streamCart, cartStreamKinds, eventstore.Binding{Column: "cart_id", Value: cartID})
}

// PricingQuery builds the PricingStream query bound to a single product.
func PricingQuery(productID string) eventstore.Query {
	return eventstore.NewQuery(streamPricing, []string{KindPriceChanged}, eventstore.Binding{Column: "product_id", Value: productID})
}

// AllCartsQuery builds an unbound CartStream query, read by projections
// that maintain a read model across every cart rather than one.
func AllCartsQuery() eventstore.Query {
	return eventstore.NewQuery(streamCart, cartStreamKinds, eventstore.Binding{})
}

// AllPricingQuery builds an unbound PricingStream query.
func AllPricingQuery() eventstore.Query {
	return eventstore.NewQuery(streamPricing, []string{KindPriceChanged}, eventstore.Binding{})
}

// AllInventoryQuery builds an unbound InventoryStream query, read by
// the inventories projection which tracks every product.
func AllInventoryQuery() eventstore.Query {
	return eventstore.NewQuery(streamInventory, []string{KindInventoryChanged}, eventstore.Binding{})
}

// AllSubmittedQuery builds an unbound SubmittedStream query, read by
// the cart_submitted automation that enqueues publish_cart tasks.
func AllSubmittedQuery() eventstore.Query {
	return eventstore.NewQuery(streamSubmitted, []string{KindCartSubmitted}, eventstore.Binding{})
}

// PublishedQuery builds the PublishedStream query bound to a single
// cart, matching its CartPublished/CartPublicationFailed events. The
// publish_cart task handler does not read it: it publishes and appends
// CartPublished without checking for an earlier one.
func PublishedQuery(cartID string) eventstore.Query {
	return eventstore.NewQuery(streamPublished, []string{KindCartPublished, KindCartPubFailed}, eventstore.Binding{Column: "cart_id", Value: cartID})
}

// CartsWithProductsQuery is the composite CartStream ⊕ PricingStream
// query behind the carts_with_products listener, grounded on
// original_source/src/domain/cart/carts_with_products.rs.
func CartsWithProductsQuery() eventstore.Query {
	return AllCartsQuery().Union(AllPricingQuery())
}
