package listener

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/eventstore"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestCartItemsListenerHandleCartItemAdded(t *testing.T) {
	db, mock := newMockDB(t)
	l := NewCartItemsListener(db)

	mock.ExpectExec(`(?s)INSERT.*cart_items`).WillReturnResult(sqlmock.NewResult(0, 1))

	cartID, itemID := "cart-1", "item-1"
	ev := eventstore.Event{
		EventID: 5,
		Kind:    cart.KindCartItemAdded,
		Payload: mustJSON(t, cart.CartItemAdded{
			CartID: cartID, ItemID: itemID, ProductID: "prod-1",
			Description: "widget", Price: decimal.NewFromInt(10),
		}),
		CartID: &cartID, ItemID: &itemID,
	}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartItemsListenerHandleCartItemRemoved(t *testing.T) {
	db, mock := newMockDB(t)
	l := NewCartItemsListener(db)

	mock.ExpectExec(`(?s)DELETE.*cart_items`).WillReturnResult(sqlmock.NewResult(0, 1))

	cartID, itemID := "cart-1", "item-1"
	ev := eventstore.Event{EventID: 6, Kind: cart.KindCartItemRemoved, CartID: &cartID, ItemID: &itemID}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartItemsListenerHandleCartSubmittedClearsRows(t *testing.T) {
	db, mock := newMockDB(t)
	l := NewCartItemsListener(db)

	mock.ExpectExec(`(?s)DELETE.*cart_items`).WillReturnResult(sqlmock.NewResult(0, 2))

	cartID := "cart-1"
	ev := eventstore.Event{EventID: 9, Kind: cart.KindCartSubmitted, CartID: &cartID}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartItemsListenerHandleCartCreatedIsNoop(t *testing.T) {
	db, _ := newMockDB(t)
	l := NewCartItemsListener(db)

	cartID := "cart-1"
	err := l.Handle(context.Background(), eventstore.Event{EventID: 1, Kind: cart.KindCartCreated, CartID: &cartID})
	require.NoError(t, err)
}
