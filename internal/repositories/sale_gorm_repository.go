package repositories

import (
	"context"
	"fmt"

	"resell/internal/errs"
	"resell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMSaleRepository is a GORM implementation of SaleRepository.
type GORMSaleRepository struct {
	db *gorm.DB
}

// NewGORMSaleRepository creates a new instance of GORMSaleRepository.
func NewGORMSaleRepository(db *gorm.DB) *GORMSaleRepository {
	return &GORMSaleRepository{db: db}
}

func (r *GORMSaleRepository) Create(ctx context.Context, sale *models.Sale) error {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	return nil
}

func (r *GORMSaleRepository) GetByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "sale", id)
	}
	return &sale, nil
}

func (r *GORMSaleRepository) GetForUpdate(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, lookupErr(err, "sale", id)
	}
	return &sale, nil
}

func (r *GORMSaleRepository) ListBySeller(ctx context.Context, sellerID string) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

func (r *GORMSaleRepository) UpdateStatus(ctx context.Context, id string, from, to models.SaleStatus) error {
	return compareAndSetStatus(ctx, r.db, &models.Sale{}, "sale", id, string(from), string(to))
}

func (r *GORMSaleRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Sale{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete sale: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("sale", id)
	}
	return nil
}
