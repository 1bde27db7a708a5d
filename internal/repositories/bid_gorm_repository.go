package repositories

import (
	"context"
	"fmt"

	"resell/internal/errs"
	"resell/internal/models"

	"gorm.io/gorm"
)

// GORMBidRepository is a GORM implementation of BidRepository.
type GORMBidRepository struct {
	db *gorm.DB
}

// NewGORMBidRepository creates a new instance of GORMBidRepository.
func NewGORMBidRepository(db *gorm.DB) *GORMBidRepository {
	return &GORMBidRepository{db: db}
}

func (r *GORMBidRepository) CreateOrderBid(ctx context.Context, bid *models.OrderBid) error {
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return fmt.Errorf("failed to create order bid: %w", err)
	}
	return nil
}

func (r *GORMBidRepository) CreateSaleBid(ctx context.Context, bid *models.SaleBid) error {
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return fmt.Errorf("failed to create sale bid: %w", err)
	}
	return nil
}

func (r *GORMBidRepository) GetOrderBid(ctx context.Context, id string) (*models.OrderBid, error) {
	var bid models.OrderBid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "order_bid", id)
	}
	return &bid, nil
}

func (r *GORMBidRepository) GetSaleBid(ctx context.Context, id string) (*models.SaleBid, error) {
	var bid models.SaleBid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "sale_bid", id)
	}
	return &bid, nil
}

func (r *GORMBidRepository) GetOrderBidByOrder(ctx context.Context, orderID string) (*models.OrderBid, error) {
	var bid models.OrderBid
	if err := r.db.WithContext(ctx).First(&bid, "order_id = ?", orderID).Error; err != nil {
		return nil, lookupErr(err, "order_bid", "order:"+orderID)
	}
	return &bid, nil
}

func (r *GORMBidRepository) GetSaleBidBySale(ctx context.Context, saleID string) (*models.SaleBid, error) {
	var bid models.SaleBid
	if err := r.db.WithContext(ctx).First(&bid, "sale_id = ?", saleID).Error; err != nil {
		return nil, lookupErr(err, "sale_bid", "sale:"+saleID)
	}
	return &bid, nil
}

// ListPendingOrderBids returns the open buy offers of a variant, highest price first.
func (r *GORMBidRepository) ListPendingOrderBids(ctx context.Context, itemVariantID string) ([]models.OrderBid, error) {
	var bids []models.OrderBid
	err := r.db.WithContext(ctx).
		Where("item_variant_id = ? AND status = ?", itemVariantID, models.BidPending).
		Order("price DESC, created_at").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list order bids: %w", err)
	}
	return bids, nil
}

// ListPendingSaleBids returns the open sell offers of a variant, lowest price first.
func (r *GORMBidRepository) ListPendingSaleBids(ctx context.Context, itemVariantID string) ([]models.SaleBid, error) {
	var bids []models.SaleBid
	err := r.db.WithContext(ctx).
		Where("item_variant_id = ? AND status = ?", itemVariantID, models.BidPending).
		Order("price ASC, created_at").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sale bids: %w", err)
	}
	return bids, nil
}

func (r *GORMBidRepository) MatchOrderBid(ctx context.Context, id, saleID string) error {
	res := r.db.WithContext(ctx).Model(&models.OrderBid{}).
		Where("id = ? AND status = ?", id, models.BidPending).
		Updates(map[string]any{"status": models.BidMatched, "sale_id": saleID})
	if res.Error != nil {
		return fmt.Errorf("failed to match order bid %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	bid, err := r.GetOrderBid(ctx, id)
	if err != nil {
		return err
	}
	return matchRejected("order_bid", id, bid.Status)
}

func (r *GORMBidRepository) MatchSaleBid(ctx context.Context, id, orderID string) error {
	res := r.db.WithContext(ctx).Model(&models.SaleBid{}).
		Where("id = ? AND status = ?", id, models.BidPending).
		Updates(map[string]any{"status": models.BidMatched, "order_id": orderID})
	if res.Error != nil {
		return fmt.Errorf("failed to match sale bid %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	bid, err := r.GetSaleBid(ctx, id)
	if err != nil {
		return err
	}
	return matchRejected("sale_bid", id, bid.Status)
}

func matchRejected(entity, id string, current models.BidStatus) error {
	if current == models.BidMatched {
		return errs.BidAlreadyMatched(entity, id)
	}
	return errs.InvalidTransition(entity, string(current), string(models.BidMatched))
}

func (r *GORMBidRepository) UpdateOrderBidStatus(ctx context.Context, id string, from, to models.BidStatus) error {
	return compareAndSetStatus(ctx, r.db, &models.OrderBid{}, "order_bid", id, string(from), string(to))
}

func (r *GORMBidRepository) UpdateSaleBidStatus(ctx context.Context, id string, from, to models.BidStatus) error {
	return compareAndSetStatus(ctx, r.db, &models.SaleBid{}, "sale_bid", id, string(from), string(to))
}

func (r *GORMBidRepository) DeleteOrderBid(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND (sale_id = '' OR sale_id IS NULL)", id, models.BidPending).
		Delete(&models.OrderBid{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete order bid: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	bid, err := r.GetOrderBid(ctx, id)
	if err != nil {
		return err
	}
	return deleteRejected("order_bid", id, bid.Status, bid.SaleID)
}

func (r *GORMBidRepository) DeleteSaleBid(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND (order_id = '' OR order_id IS NULL)", id, models.BidPending).
		Delete(&models.SaleBid{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete sale bid: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	bid, err := r.GetSaleBid(ctx, id)
	if err != nil {
		return err
	}
	return deleteRejected("sale_bid", id, bid.Status, bid.OrderID)
}

func deleteRejected(entity, id string, current models.BidStatus, counterpart string) error {
	if counterpart != "" {
		return errs.BidLinked(entity, id)
	}
	return matchRejected(entity, id, current)
}
