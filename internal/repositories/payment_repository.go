package repositories

import (
	"context"
	"errors"
	"fmt"

	"resell/internal/errs"
	"resell/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	// FindSuccessful returns the successful payment of the order, or nil when there is none.
	FindSuccessful(ctx context.Context, orderID string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error
}

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

// Create inserts the payment. A second successful payment for the same order violates
// idx_payments_order_success and is reported as a conflict.
func (r *GORMPaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.New(errs.CodeConflict, errs.WithEntity("payment", p.OrderID), errs.WithCause(err))
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *GORMPaymentRepository) FindSuccessful(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND success = ?", orderID, true).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find payment for order %s: %w", orderID, err)
	}
	if p.ID == "" {
		return nil, nil
	}
	return &p, nil
}

func (r *GORMPaymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update payment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("payment", id)
	}
	return nil
}
