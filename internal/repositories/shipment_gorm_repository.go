package repositories

import (
	"context"
	"fmt"

	"resell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeShipmentStatuses = []models.ShipmentStatus{models.ShipmentInTransit, models.ShipmentOutForDelivery}

// GORMShipmentRepository is a GORM implementation of ShipmentRepository.
type GORMShipmentRepository struct {
	db *gorm.DB
}

// NewGORMShipmentRepository creates a new instance of GORMShipmentRepository.
func NewGORMShipmentRepository(db *gorm.DB) *GORMShipmentRepository {
	return &GORMShipmentRepository{db: db}
}

func (r *GORMShipmentRepository) CreateOrderShipment(ctx context.Context, s *models.OrderShipment) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create order shipment: %w", err)
	}
	return nil
}

func (r *GORMShipmentRepository) CreateSellerShipment(ctx context.Context, s *models.SellerShipment) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create seller shipment: %w", err)
	}
	return nil
}

func (r *GORMShipmentRepository) GetOrderShipmentByOrder(ctx context.Context, orderID string) (*models.OrderShipment, error) {
	var s models.OrderShipment
	if err := r.db.WithContext(ctx).First(&s, "order_id = ?", orderID).Error; err != nil {
		return nil, lookupErr(err, "order_shipment", "order:"+orderID)
	}
	return &s, nil
}

func (r *GORMShipmentRepository) GetSellerShipmentBySale(ctx context.Context, saleID string) (*models.SellerShipment, error) {
	var s models.SellerShipment
	if err := r.db.WithContext(ctx).First(&s, "sale_id = ?", saleID).Error; err != nil {
		return nil, lookupErr(err, "seller_shipment", "sale:"+saleID)
	}
	return &s, nil
}

func (r *GORMShipmentRepository) GetOrderShipmentForUpdate(ctx context.Context, id string) (*models.OrderShipment, error) {
	var s models.OrderShipment
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, lookupErr(err, "order_shipment", id)
	}
	return &s, nil
}

func (r *GORMShipmentRepository) GetSellerShipmentForUpdate(ctx context.Context, id string) (*models.SellerShipment, error) {
	var s models.SellerShipment
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, lookupErr(err, "seller_shipment", id)
	}
	return &s, nil
}

func (r *GORMShipmentRepository) ListActiveOrderShipments(ctx context.Context) ([]models.OrderShipment, error) {
	var out []models.OrderShipment
	err := r.db.WithContext(ctx).
		Where("status IN ? AND tracking_number <> ''", activeShipmentStatuses).
		Order("updated_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list order shipments: %w", err)
	}
	return out, nil
}

func (r *GORMShipmentRepository) ListActiveSellerShipments(ctx context.Context) ([]models.SellerShipment, error) {
	var out []models.SellerShipment
	err := r.db.WithContext(ctx).
		Where("status IN ? AND tracking_number <> ''", activeShipmentStatuses).
		Order("updated_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seller shipments: %w", err)
	}
	return out, nil
}

func (r *GORMShipmentRepository) SaveOrderShipment(ctx context.Context, s *models.OrderShipment) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("failed to save order shipment %s: %w", s.ID, err)
	}
	return nil
}

func (r *GORMShipmentRepository) SaveSellerShipment(ctx context.Context, s *models.SellerShipment) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("failed to save seller shipment %s: %w", s.ID, err)
	}
	return nil
}

func (r *GORMShipmentRepository) DeleteOrderShipment(ctx context.Context, orderID string) error {
	if err := r.db.WithContext(ctx).Delete(&models.OrderShipment{}, "order_id = ?", orderID).Error; err != nil {
		return fmt.Errorf("failed to delete order shipment: %w", err)
	}
	return nil
}

func (r *GORMShipmentRepository) DeleteSellerShipment(ctx context.Context, saleID string) error {
	if err := r.db.WithContext(ctx).Delete(&models.SellerShipment{}, "sale_id = ?", saleID).Error; err != nil {
		return fmt.Errorf("failed to delete seller shipment: %w", err)
	}
	return nil
}
