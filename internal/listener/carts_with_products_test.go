package listener

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/eventstore"
)

func TestCartsWithProductsListenerHandleCartItemAddedUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	q := &fakeEnqueuer{}
	l := NewCartsWithProductsListener(db, q)

	mock.ExpectExec(`(?s)INSERT.*carts_with_products`).WillReturnResult(sqlmock.NewResult(0, 1))

	cartID, itemID := "cart-1", "item-1"
	ev := eventstore.Event{
		EventID: 4,
		Kind:    cart.KindCartItemAdded,
		Payload: mustJSON(t, cart.CartItemAdded{CartID: cartID, ItemID: itemID, ProductID: "prod-1", Price: decimal.NewFromInt(1)}),
		CartID:  &cartID, ItemID: &itemID,
	}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Empty(t, q.calls)
}

func TestCartsWithProductsListenerHandlePriceChangedFansOutArchiveTasks(t *testing.T) {
	db, mock := newMockDB(t)
	q := &fakeEnqueuer{}
	l := NewCartsWithProductsListener(db, q)

	rows := sqlmock.NewRows([]string{"cart_id", "item_id", "product_id", "last_event_id"}).
		AddRow("cart-1", "item-1", "prod-1", int64(3)).
		AddRow("cart-2", "item-9", "prod-1", int64(4))
	mock.ExpectQuery(`(?s)SELECT.*carts_with_products.*product_id`).WillReturnRows(rows)

	productID := "prod-1"
	ev := eventstore.Event{
		EventID:   50,
		Kind:      cart.KindPriceChanged,
		ProductID: &productID,
		Payload: mustJSON(t, cart.PriceChanged{
			ProductID: productID,
			OldPrice:  decimal.NewFromInt(9),
			NewPrice:  decimal.NewFromInt(12),
		}),
	}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, q.calls, 2)
	require.Equal(t, "archive_item", q.calls[0].taskType)
	require.Equal(t, "cart-1:item-1:50", q.calls[0].dedupKey)
	require.Equal(t, "cart-2:item-9:50", q.calls[1].dedupKey)
	require.Equal(t, int64(50), q.calls[0].triggeringEventID)
}

func TestCartsWithProductsListenerHandleCartClearedDeletesRows(t *testing.T) {
	db, mock := newMockDB(t)
	l := NewCartsWithProductsListener(db, &fakeEnqueuer{})

	mock.ExpectExec(`(?s)DELETE.*carts_with_products`).WillReturnResult(sqlmock.NewResult(0, 1))

	cartID := "cart-1"
	ev := eventstore.Event{EventID: 7, Kind: cart.KindCartCleared, CartID: &cartID}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}
