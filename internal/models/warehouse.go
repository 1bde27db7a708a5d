package models

import "resell/internal/statemachine"

// WarehouseStatus tracks an item held in the operator's facility.
type WarehouseStatus string

const (
	WarehouseAssociatedWithOrder WarehouseStatus = "ASSOCIATED_WITH_ORDER"
	WarehouseAssociatedWithSale  WarehouseStatus = "ASSOCIATED_WITH_SALE"
	WarehouseInStorage           WarehouseStatus = "IN_STORAGE"
	WarehouseSold                WarehouseStatus = "SOLD"
)

// WarehouseMachine holds the storage transition table.
var WarehouseMachine = statemachine.New("warehouse_storage", statemachine.Table[WarehouseStatus]{
	WarehouseAssociatedWithOrder: {WarehouseInStorage, WarehouseSold},
	WarehouseAssociatedWithSale:  {WarehouseInStorage, WarehouseSold},
	WarehouseInStorage:           {WarehouseSold},
	WarehouseSold:                {},
})

// WarehouseStorage is attached to exactly one Order or one Sale.
type WarehouseStorage struct {
	Model
	OwnerID string          `json:"owner_id" gorm:"index;type:varchar(36);not null"`
	OrderID string          `json:"order_id,omitempty" gorm:"index;type:varchar(36)"`
	SaleID  string          `json:"sale_id,omitempty" gorm:"index;type:varchar(36)"`
	Status  WarehouseStatus `json:"status" gorm:"index;type:varchar(32);not null"`
}

func (w *WarehouseStorage) GetStatus() WarehouseStatus  { return w.Status }
func (w *WarehouseStorage) SetStatus(s WarehouseStatus) { w.Status = s }
