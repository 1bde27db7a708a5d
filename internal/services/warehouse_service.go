package services

import (
	"context"
	"fmt"

	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/repositories"
)

// WarehouseService tracks items held in the operator's facility. It only acts when the
// order or sale lifecycle asks it to.
type WarehouseService struct {
	store repositories.Store
}

// NewWarehouseService creates a new WarehouseService.
func NewWarehouseService(store repositories.Store) *WarehouseService {
	return &WarehouseService{store: store}
}

// GetStorage returns a storage row visible to its owner or an admin.
func (s *WarehouseService) GetStorage(ctx context.Context, caller Caller, id string) (*models.WarehouseStorage, error) {
	w, err := s.store.Warehouse().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(w.OwnerID) {
		return nil, errs.Forbidden("warehouse_storage", id)
	}
	return w, nil
}

// CreateOrderStorage attaches a storage row to the order for a buyer who keeps the item
// in the warehouse.
func (s *WarehouseService) CreateOrderStorage(ctx context.Context, r repositories.TxRepos, order *models.Order) (*models.WarehouseStorage, error) {
	existing, err := r.Warehouse().FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	w := &models.WarehouseStorage{
		OwnerID: order.BuyerID,
		OrderID: order.ID,
		Status:  models.WarehouseAssociatedWithOrder,
	}
	if err := r.Warehouse().Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// CreateSellerStorage attaches a storage row to a sale shipped into the warehouse.
func (s *WarehouseService) CreateSellerStorage(ctx context.Context, r repositories.TxRepos, sale *models.Sale) (*models.WarehouseStorage, error) {
	existing, err := r.Warehouse().FindBySale(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	w := &models.WarehouseStorage{
		OwnerID: sale.SellerID,
		SaleID:  sale.ID,
		Status:  models.WarehouseAssociatedWithSale,
	}
	if err := r.Warehouse().Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// UpdateWarehouseStatus moves the storage along its transition table.
func (s *WarehouseService) UpdateWarehouseStatus(ctx context.Context, r repositories.TxRepos, w *models.WarehouseStorage, to models.WarehouseStatus) error {
	from := w.Status
	if err := models.WarehouseMachine.Apply(w, to); err != nil {
		return err
	}
	if err := r.Warehouse().UpdateStatus(ctx, w.ID, from, to); err != nil {
		w.Status = from
		return fmt.Errorf("warehouse storage %s: %w", w.ID, err)
	}
	return nil
}

// UpdateWarehouseStatusToSold marks the storage of the order and of the sale as SOLD.
// Either id may be empty; items that were never stored are skipped.
func (s *WarehouseService) UpdateWarehouseStatusToSold(ctx context.Context, r repositories.TxRepos, orderID, saleID string) error {
	var rows []*models.WarehouseStorage
	if orderID != "" {
		w, err := r.Warehouse().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		rows = append(rows, w)
	}
	if saleID != "" {
		w, err := r.Warehouse().FindBySale(ctx, saleID)
		if err != nil {
			return err
		}
		rows = append(rows, w)
	}
	for _, w := range rows {
		if w == nil || w.Status == models.WarehouseSold {
			continue
		}
		if err := s.UpdateWarehouseStatus(ctx, r, w, models.WarehouseSold); err != nil {
			return err
		}
	}
	return nil
}
