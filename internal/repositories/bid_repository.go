package repositories

import (
	"context"

	"resell/internal/models"
)

// BidRepository defines the interface for order bid and sale bid data access.
type BidRepository interface {
	CreateOrderBid(ctx context.Context, bid *models.OrderBid) error
	CreateSaleBid(ctx context.Context, bid *models.SaleBid) error
	GetOrderBid(ctx context.Context, id string) (*models.OrderBid, error)
	GetSaleBid(ctx context.Context, id string) (*models.SaleBid, error)
	GetOrderBidByOrder(ctx context.Context, orderID string) (*models.OrderBid, error)
	GetSaleBidBySale(ctx context.Context, saleID string) (*models.SaleBid, error)
	ListPendingOrderBids(ctx context.Context, itemVariantID string) ([]models.OrderBid, error)
	ListPendingSaleBids(ctx context.Context, itemVariantID string) ([]models.SaleBid, error)

	// MatchOrderBid moves a PENDING order bid to MATCHED and links the sale in one
	// conditional update. A bid that is no longer PENDING fails with bid_already_matched.
	MatchOrderBid(ctx context.Context, id, saleID string) error
	// MatchSaleBid is the seller-side counterpart of MatchOrderBid.
	MatchSaleBid(ctx context.Context, id, orderID string) error

	UpdateOrderBidStatus(ctx context.Context, id string, from, to models.BidStatus) error
	UpdateSaleBidStatus(ctx context.Context, id string, from, to models.BidStatus) error
	// DeleteOrderBid removes a PENDING order bid with no matched sale in one conditional
	// delete. A linked bid fails with bid_linked_to_counterpart and is kept.
	DeleteOrderBid(ctx context.Context, id string) error
	// DeleteSaleBid is the seller-side counterpart of DeleteOrderBid.
	DeleteSaleBid(ctx context.Context, id string) error
}
