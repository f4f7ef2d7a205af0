package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitCart_ErrorIfNoCart(t *testing.T) {
	cmd := SubmitCartCommand{CartID: "cart-1"}
	state := given(cmd.Zero(), cmd.Evolve)

	_, err := cmd.Decide(state)
	require.Error(t, err)
}

func TestSubmitCart_ErrorIfEmpty(t *testing.T) {
	cmd := SubmitCartCommand{CartID: "cart-1"}
	state := given(cmd.Zero(), cmd.Evolve, cartCreated("cart-1"))

	_, err := cmd.Decide(state)
	require.Error(t, err)
}

func TestSubmitCart_SuccessWithOrderedProductsAndTotalPrice(t *testing.T) {
	cmd := SubmitCartCommand{CartID: "cart-1"}
	state := given(cmd.Zero(), cmd.Evolve,
		cartCreated("cart-1"),
		cartItemAdded("cart-1", "item-1", "prod-1", 10),
	)

	events, err := cmd.Decide(state)
	require.NoError(t, err)
	require.Len(t, events, 1)

	submitted := events[0].Payload.(CartSubmitted)
	require.Len(t, submitted.OrderedProduct, 1)
	require.Equal(t, "prod-1", submitted.OrderedProduct[0].ProductID)
	require.True(t, submitted.TotalPrice.Equal(decimalFromFloat(10)))
}

func TestSubmitCart_ErrorIfSubmittedTwice(t *testing.T) {
	cmd := SubmitCartCommand{CartID: "cart-1"}
	state := given(cmd.Zero(), cmd.Evolve,
		cartCreated("cart-1"),
		cartItemAdded("cart-1", "item-1", "prod-1", 10),
		cartSubmitted("cart-1"),
	)

	_, err := cmd.Decide(state)
	require.Error(t, err)
}
