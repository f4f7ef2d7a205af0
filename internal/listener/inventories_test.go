package listener

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/eventstore"
)

func TestInventoriesListenerHandleUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	l := NewInventoriesListener(db)

	mock.ExpectExec(`(?s)INSERT.*inventories`).WillReturnResult(sqlmock.NewResult(0, 1))

	productID := "prod-1"
	ev := eventstore.Event{
		EventID:   3,
		Kind:      cart.KindInventoryChanged,
		Payload:   mustJSON(t, cart.InventoryChanged{ProductID: productID, Inventory: 17}),
		ProductID: &productID,
	}

	require.NoError(t, l.Handle(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoriesListenerHandleIgnoresOtherKinds(t *testing.T) {
	db, _ := newMockDB(t)
	l := NewInventoriesListener(db)

	err := l.Handle(context.Background(), eventstore.Event{EventID: 1, Kind: cart.KindPriceChanged})
	require.NoError(t, err)
}
