package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClearCart_ClearedIfCartExists(t *testing.T) {
	cmd := ClearCartCommand{CartID: "cart-1"}
	state := given(cmd.Zero(), cmd.Evolve, cartCreated("cart-1"), cartItemAdded("cart-1", "item-1", "prod-1", 1))

	events, err := cmd.Decide(state)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, KindCartCleared, events[0].Kind)
}

func TestClearCart_ErrorIfCartDoesNotExist(t *testing.T) {
	cmd := ClearCartCommand{CartID: "cart-1"}
	state := given(cmd.Zero(), cmd.Evolve)

	_, err := cmd.Decide(state)
	require.Error(t, err)
}
