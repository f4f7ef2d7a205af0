package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddItem_CartCreatedIfNotExists(t *testing.T) {
	cmd := AddItemCommand{CartID: "cart-1", ItemID: "item-1", ProductID: "prod-1", Description: "d", Image: "i", Fingerprint: "fp"}
	state := given(cmd.Zero(), cmd.Evolve)

	events, err := cmd.Decide(state)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, KindCartCreated, events[0].Kind)
	require.Equal(t, KindCartItemAdded, events[1].Kind)
}

func TestAddItem_AddedIfCartExistsWithSpace(t *testing.T) {
	cmd := AddItemCommand{CartID: "cart-1", ItemID: "item-2", ProductID: "prod-2"}
	state := given(cmd.Zero(), cmd.Evolve, cartCreated("cart-1"))

	events, err := cmd.Decide(state)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, KindCartItemAdded, events[0].Kind)
}

func TestAddItem_RejectedIfCartFull(t *testing.T) {
	cmd := AddItemCommand{CartID: "cart-1", ItemID: "item-4", ProductID: "prod-4"}
	state := given(cmd.Zero(), cmd.Evolve,
		cartCreated("cart-1"),
		cartItemAdded("cart-1", "item-1", "prod-1", 1),
		cartItemAdded("cart-1", "item-2", "prod-2", 2),
		cartItemAdded("cart-1", "item-3", "prod-3", 3),
	)

	_, err := cmd.Decide(state)
	require.Error(t, err)
}

func TestAddItem_RejectedIfCartSubmitted(t *testing.T) {
	cmd := AddItemCommand{CartID: "cart-1", ItemID: "item-2", ProductID: "prod-2"}
	state := given(cmd.Zero(), cmd.Evolve, cartCreated("cart-1"), cartSubmitted("cart-1"))

	_, err := cmd.Decide(state)
	require.Error(t, err)
}
