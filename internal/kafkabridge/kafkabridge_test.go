package kafkabridge

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/logging"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:             sqlDB,
		WithoutReturning: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return &database.DB{DB: gdb}, mock
}

func TestInventoryTranslatorRejectsMalformedPayload(t *testing.T) {
	translate := NewInventoryTranslator(nil)
	err := translate(context.Background(), []byte("not json"))
	require.Error(t, err)
}

func TestPriceChangeTranslatorRejectsMalformedPayload(t *testing.T) {
	translate := NewPriceChangeTranslator(nil)
	err := translate(context.Background(), []byte("not json"))
	require.Error(t, err)
}

func TestBridgeRegisterTopic(t *testing.T) {
	db, _ := newMockDB(t)
	b := NewBridge([]string{"localhost:9092"}, db, logging.New(logging.Config{Service: "test", Module: "kafkabridge"}), nil)

	b.RegisterTopic("inventories", func(ctx context.Context, payload []byte) error { return nil })
	require.Len(t, b.translator, 1)
}

func TestAdvanceCheckpointUpsertsOffset(t *testing.T) {
	db, mock := newMockDB(t)
	b := NewBridge(nil, db, logging.New(logging.Config{Service: "test", Module: "kafkabridge"}), nil)

	mock.ExpectExec(`(?s)INSERT INTO kafka_topic.*ON CONFLICT`).WillReturnResult(sqlmock.NewResult(0, 1))
	b.advanceCheckpoint(context.Background(), "inventories", 41)
	require.NoError(t, mock.ExpectationsWereMet())
}
