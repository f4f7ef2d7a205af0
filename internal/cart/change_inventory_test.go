package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChangeInventory_EventShouldBeCreated(t *testing.T) {
	cmd := ChangeInventoryCommand{ProductID: "prod-1", Inventory: 42}

	events, err := cmd.Decide(cmd.Zero())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, KindInventoryChanged, events[0].Kind)

	payload := events[0].Payload.(InventoryChanged)
	require.Equal(t, int32(42), payload.Inventory)
}
