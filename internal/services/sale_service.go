package services

import (
	"context"
	"fmt"

	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/repositories"
)

// SaleService owns the seller side of a trade.
type SaleService struct {
	store     repositories.Store
	warehouse *WarehouseService
}

// NewSaleService creates a new SaleService.
func NewSaleService(store repositories.Store, warehouse *WarehouseService) *SaleService {
	return &SaleService{store: store, warehouse: warehouse}
}

// GetSale returns a sale visible to its seller or an admin.
func (s *SaleService) GetSale(ctx context.Context, caller Caller, id string) (*models.Sale, error) {
	sale, err := s.store.Sales().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(sale.SellerID) {
		return nil, errs.Forbidden("sale", id)
	}
	return sale, nil
}

// ListSalesBySeller lists the sales of sellerID, newest first.
func (s *SaleService) ListSalesBySeller(ctx context.Context, caller Caller, sellerID string) ([]models.Sale, error) {
	if !caller.owns(sellerID) {
		return nil, errs.Forbidden("user", sellerID)
	}
	return s.store.Sales().ListBySeller(ctx, sellerID)
}

// UpdateStatus is the administrative status change. It is bound by the table and runs the
// same cascade as the dedicated operation for the target status. SOLD is only reached by
// completing the matched order.
func (s *SaleService) UpdateStatus(ctx context.Context, caller Caller, id string, to models.SaleStatus) (*models.Sale, error) {
	if err := caller.requireAdmin("sale", id); err != nil {
		return nil, err
	}
	if to == models.SaleCancelled {
		return s.CancelSale(ctx, caller, id)
	}
	var sale *models.Sale
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		sale, err = r.Sales().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !models.SaleMachine.CanTransition(sale.Status, to) {
			return errs.InvalidTransition(models.SaleMachine.Name(), string(sale.Status), string(to))
		}
		switch to {
		case models.SaleSold:
			return errs.New(errs.CodeInvalid, errs.WithEntity("sale", id), errs.WithMessage("a sale is sold by completing its order"))
		case models.SaleInStorage:
			if err := s.transition(ctx, r, sale, to); err != nil {
				return err
			}
			storage, err := s.warehouse.CreateSellerStorage(ctx, r, sale)
			if err != nil {
				return err
			}
			if storage.Status != models.WarehouseAssociatedWithSale {
				return nil
			}
			return s.warehouse.UpdateWarehouseStatus(ctx, r, storage, models.WarehouseInStorage)
		default:
			return s.transition(ctx, r, sale, to)
		}
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// CancelSale withdraws a sale that has not been matched to an order yet.
func (s *SaleService) CancelSale(ctx context.Context, caller Caller, id string) (*models.Sale, error) {
	var sale *models.Sale
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		sale, err = r.Sales().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !caller.owns(sale.SellerID) {
			return errs.Forbidden("sale", id)
		}
		if !models.SaleMachine.CanTransition(sale.Status, models.SaleCancelled) {
			return errs.InvalidTransition(models.SaleMachine.Name(), string(sale.Status), string(models.SaleCancelled))
		}
		bid, err := r.Bids().GetSaleBid(ctx, sale.SaleBidID)
		if err != nil {
			return err
		}
		if bid.OrderID != "" {
			return errs.BidLinked("sale_bid", bid.ID)
		}
		if err := s.transition(ctx, r, sale, models.SaleCancelled); err != nil {
			return err
		}
		return transitionSaleBid(ctx, r, bid, models.BidCancelled)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// StoreInWarehouse records that the seller ships the item into the warehouse instead of
// straight to a buyer.
func (s *SaleService) StoreInWarehouse(ctx context.Context, caller Caller, id string) (*models.WarehouseStorage, error) {
	var storage *models.WarehouseStorage
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		sale, err := r.Sales().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !caller.owns(sale.SellerID) {
			return errs.Forbidden("sale", id)
		}
		if !models.SaleMachine.CanTransition(sale.Status, models.SaleInStorage) {
			return errs.InvalidTransition(models.SaleMachine.Name(), string(sale.Status), string(models.SaleInStorage))
		}
		storage, err = s.warehouse.CreateSellerStorage(ctx, r, sale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return storage, nil
}

func (s *SaleService) transition(ctx context.Context, r repositories.TxRepos, sale *models.Sale, to models.SaleStatus) error {
	from := sale.Status
	if err := models.SaleMachine.Apply(sale, to); err != nil {
		return err
	}
	if err := r.Sales().UpdateStatus(ctx, sale.ID, from, to); err != nil {
		sale.Status = from
		return fmt.Errorf("sale %s: %w", sale.ID, err)
	}
	return nil
}

// cancelMatched withdraws a matched sale whose order was refunded, together with its bid.
func (s *SaleService) cancelMatched(ctx context.Context, r repositories.TxRepos, saleID string) error {
	sale, err := r.Sales().GetForUpdate(ctx, saleID)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, r, sale, models.SaleCancelled); err != nil {
		return err
	}
	bid, err := r.Bids().GetSaleBid(ctx, sale.SaleBidID)
	if err != nil {
		return err
	}
	if !models.BidMachine.CanTransition(bid.Status, models.BidCancelled) {
		return nil
	}
	return transitionSaleBid(ctx, r, bid, models.BidCancelled)
}

// markSold settles the sale and its bid once the buyer has the item.
func (s *SaleService) markSold(ctx context.Context, r repositories.TxRepos, saleID string) error {
	sale, err := r.Sales().GetForUpdate(ctx, saleID)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, r, sale, models.SaleSold); err != nil {
		return err
	}
	bid, err := r.Bids().GetSaleBid(ctx, sale.SaleBidID)
	if err != nil {
		return err
	}
	return transitionSaleBid(ctx, r, bid, models.BidCompleted)
}

// receiveIntoWarehouse is called when the seller's shipment arrives. Sales that were
// shipped into storage move to IN_STORAGE together with their storage row.
func (s *SaleService) receiveIntoWarehouse(ctx context.Context, r repositories.TxRepos, saleID string) error {
	sale, err := r.Sales().GetForUpdate(ctx, saleID)
	if err != nil {
		return err
	}
	storage, err := r.Warehouse().FindBySale(ctx, sale.ID)
	if err != nil {
		return err
	}
	if storage == nil || sale.Status != models.SaleInTransit {
		return nil
	}
	if err := s.transition(ctx, r, sale, models.SaleInStorage); err != nil {
		return err
	}
	return s.warehouse.UpdateWarehouseStatus(ctx, r, storage, models.WarehouseInStorage)
}
