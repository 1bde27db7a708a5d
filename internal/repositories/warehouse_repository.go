package repositories

import (
	"context"
	"errors"
	"fmt"

	"resell/internal/models"

	"gorm.io/gorm"
)

// WarehouseRepository defines the interface for warehouse storage data access.
type WarehouseRepository interface {
	Create(ctx context.Context, w *models.WarehouseStorage) error
	GetByID(ctx context.Context, id string) (*models.WarehouseStorage, error)
	// FindByOrder and FindBySale return nil when the item was never stored.
	FindByOrder(ctx context.Context, orderID string) (*models.WarehouseStorage, error)
	FindBySale(ctx context.Context, saleID string) (*models.WarehouseStorage, error)
	UpdateStatus(ctx context.Context, id string, from, to models.WarehouseStatus) error
}

// GORMWarehouseRepository is a GORM implementation of WarehouseRepository.
type GORMWarehouseRepository struct {
	db *gorm.DB
}

// NewGORMWarehouseRepository creates a new instance of GORMWarehouseRepository.
func NewGORMWarehouseRepository(db *gorm.DB) *GORMWarehouseRepository {
	return &GORMWarehouseRepository{db: db}
}

func (r *GORMWarehouseRepository) Create(ctx context.Context, w *models.WarehouseStorage) error {
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("failed to create warehouse storage: %w", err)
	}
	return nil
}

func (r *GORMWarehouseRepository) GetByID(ctx context.Context, id string) (*models.WarehouseStorage, error) {
	var w models.WarehouseStorage
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "warehouse_storage", id)
	}
	return &w, nil
}

func (r *GORMWarehouseRepository) FindByOrder(ctx context.Context, orderID string) (*models.WarehouseStorage, error) {
	return r.findBy(ctx, "order_id = ?", orderID)
}

func (r *GORMWarehouseRepository) FindBySale(ctx context.Context, saleID string) (*models.WarehouseStorage, error) {
	return r.findBy(ctx, "sale_id = ?", saleID)
}

func (r *GORMWarehouseRepository) findBy(ctx context.Context, query, id string) (*models.WarehouseStorage, error) {
	var w models.WarehouseStorage
	err := r.db.WithContext(ctx).Where(query, id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find warehouse storage: %w", err)
	}
	return &w, nil
}

func (r *GORMWarehouseRepository) UpdateStatus(ctx context.Context, id string, from, to models.WarehouseStatus) error {
	return compareAndSetStatus(ctx, r.db, &models.WarehouseStorage{}, "warehouse_storage", id, string(from), string(to))
}
