package listener

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/eventstore"
)

func TestCartSubmittedListenerEnqueuesPublishCart(t *testing.T) {
	q := &fakeEnqueuer{}
	l := NewCartSubmittedListener(q)

	cartID := "cart-1"
	ev := eventstore.Event{
		EventID: 42,
		Kind:    cart.KindCartSubmitted,
		CartID:  &cartID,
		Payload: mustJSON(t, cart.CartSubmitted{
			CartID:         cartID,
			OrderedProduct: []cart.OrderedProduct{{ProductID: "prod-1", Price: decimal.NewFromInt(5)}},
			TotalPrice:     decimal.NewFromInt(5),
		}),
	}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.Len(t, q.calls, 1)
	require.Equal(t, "publish_cart", q.calls[0].taskType)
	require.Equal(t, "42", q.calls[0].dedupKey)
	require.Equal(t, int64(42), q.calls[0].triggeringEventID)

	args, ok := q.calls[0].args.(cart.PublishCartTaskArgs)
	require.True(t, ok)
	require.Equal(t, cartID, args.Message.CartID)
}

func TestCartSubmittedListenerIgnoresOtherKinds(t *testing.T) {
	q := &fakeEnqueuer{}
	l := NewCartSubmittedListener(q)

	err := l.Handle(context.Background(), eventstore.Event{EventID: 1, Kind: cart.KindCartCleared})
	require.NoError(t, err)
	require.Empty(t, q.calls)
}
