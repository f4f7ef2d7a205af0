package listener

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wyfcoding/cartd/internal/database"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:             sqlDB,
		WithoutReturning: true, // plain INSERT/UPDATE via ExecContext, matching ExpectExec below
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &database.DB{DB: gdb}, mock
}

func TestCartItemsListenerID(t *testing.T) {
	l := NewCartItemsListener(nil)
	require.Equal(t, "cart_items", l.ID())
	require.Len(t, l.Query().Streams, 1)
	require.Equal(t, "CartStream", l.Query().Streams[0].Name)
}

func TestInventoriesListenerID(t *testing.T) {
	l := NewInventoriesListener(nil)
	require.Equal(t, "inventories", l.ID())
	require.Equal(t, "InventoryStream", l.Query().Streams[0].Name)
}

func TestCartSubmittedListenerQuery(t *testing.T) {
	l := NewCartSubmittedListener(nil)
	require.Equal(t, "cart_submitted", l.ID())
	require.Equal(t, "SubmittedStream", l.Query().Streams[0].Name)
}

func TestCartsWithProductsListenerQueryIsUnion(t *testing.T) {
	l := NewCartsWithProductsListener(nil, nil)
	require.Equal(t, "carts_with_products", l.ID())
	require.Len(t, l.Query().Streams, 2)
	require.Equal(t, "CartStream", l.Query().Streams[0].Name)
	require.Equal(t, "PricingStream", l.Query().Streams[1].Name)
}
