package repositories

import (
	"context"

	"resell/internal/models"
)

// ShipmentRepository defines the interface for buyer-bound and seller-bound shipments.
type ShipmentRepository interface {
	CreateOrderShipment(ctx context.Context, s *models.OrderShipment) error
	CreateSellerShipment(ctx context.Context, s *models.SellerShipment) error
	GetOrderShipmentByOrder(ctx context.Context, orderID string) (*models.OrderShipment, error)
	GetSellerShipmentBySale(ctx context.Context, saleID string) (*models.SellerShipment, error)
	GetOrderShipmentForUpdate(ctx context.Context, id string) (*models.OrderShipment, error)
	GetSellerShipmentForUpdate(ctx context.Context, id string) (*models.SellerShipment, error)
	// ListActiveOrderShipments returns shipments that still await a carrier update.
	ListActiveOrderShipments(ctx context.Context) ([]models.OrderShipment, error)
	ListActiveSellerShipments(ctx context.Context) ([]models.SellerShipment, error)
	SaveOrderShipment(ctx context.Context, s *models.OrderShipment) error
	SaveSellerShipment(ctx context.Context, s *models.SellerShipment) error
	DeleteOrderShipment(ctx context.Context, orderID string) error
	DeleteSellerShipment(ctx context.Context, saleID string) error
}
