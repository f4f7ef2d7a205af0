package listener

import (
	"context"
	"encoding/json"

	"gorm.io/gorm/clause"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/eventstore"
	"github.com/wyfcoding/cartd/internal/xerrors"
)

// inventoryRow is the `inventories` read-model row, grounded on
// original_source/src/domain/cart/inventories.rs's InventoriesReadModel.
type inventoryRow struct {
	ProductID   string `gorm:"column:product_id;primaryKey"`
	Inventory   int32  `gorm:"column:inventory"`
	LastEventID int64  `gorm:"column:last_event_id"`
}

func (inventoryRow) TableName() string { return "inventories" }

// InventoriesListener maintains the inventories table from
// InventoryStream. The HTTP surface exposes no route reading it.
type InventoriesListener struct {
	db *database.DB
}

func NewInventoriesListener(db *database.DB) *InventoriesListener {
	return &InventoriesListener{db: db}
}

func (l *InventoriesListener) ID() string { return "inventories" }

func (l *InventoriesListener) Query() eventstore.Query { return cart.AllInventoryQuery() }

func (l *InventoriesListener) Handle(ctx context.Context, ev eventstore.Event) error {
	if ev.Kind != cart.KindInventoryChanged {
		return nil
	}
	var payload cart.InventoryChanged
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return xerrors.Domain("decode InventoryChanged payload").WithContext("event_id", ev.EventID)
	}

	row := inventoryRow{ProductID: payload.ProductID, Inventory: payload.Inventory, LastEventID: ev.EventID}
	return wrapInfra(l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"inventory", "last_event_id"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lt{Column: "inventories.last_event_id", Value: ev.EventID},
		}},
	}).Create(&row).Error, "upsert inventories row")
}
