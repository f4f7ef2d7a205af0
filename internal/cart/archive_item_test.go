package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchiveItem_ArchivedIfCartExistsAndHasItem(t *testing.T) {
	cmd := ArchiveItemCommand{CartID: "cart-1", ItemID: "item-1", PriceChangedEventID: 10}
	state := given(cmd.Zero(), cmd.Evolve, cartCreated("cart-1"), cartItemAdded("cart-1", "item-1", "prod-1", 1))

	events, err := cmd.Decide(state)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, KindItemArchived, events[0].Kind)
}

func TestArchiveItem_NoopIfAlreadyArchived(t *testing.T) {
	cmd := ArchiveItemCommand{CartID: "cart-1", ItemID: "item-1", PriceChangedEventID: 1}
	state := given(cmd.Zero(), cmd.Evolve,
		cartCreated("cart-1"),
		cartItemAdded("cart-1", "item-1", "prod-1", 1),
		itemArchived("cart-1", "item-1", 1),
	)

	events, err := cmd.Decide(state)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestArchiveItem_NoopIfCartDoesNotExist(t *testing.T) {
	cmd := ArchiveItemCommand{CartID: "cart-1", ItemID: "item-1", PriceChangedEventID: 1}
	state := given(cmd.Zero(), cmd.Evolve)

	events, err := cmd.Decide(state)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestArchiveItem_ErrorIfCartSubmitted(t *testing.T) {
	cmd := ArchiveItemCommand{CartID: "cart-1", ItemID: "item-1", PriceChangedEventID: 1}
	state := given(cmd.Zero(), cmd.Evolve,
		cartCreated("cart-1"),
		cartItemAdded("cart-1", "item-1", "prod-1", 1),
		cartSubmitted("cart-1"),
	)

	_, err := cmd.Decide(state)
	require.Error(t, err)
}
