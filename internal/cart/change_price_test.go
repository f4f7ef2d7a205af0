package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChangePrice_EventShouldBeCreated(t *testing.T) {
	cmd := ChangePriceCommand{ProductID: "prod-1", OldPrice: decimalFromFloat(5), NewPrice: decimalFromFloat(7)}

	events, err := cmd.Decide(cmd.Zero())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, KindPriceChanged, events[0].Kind)

	payload := events[0].Payload.(PriceChanged)
	require.True(t, payload.NewPrice.Equal(decimalFromFloat(7)))
}
