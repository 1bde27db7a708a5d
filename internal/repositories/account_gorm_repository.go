package repositories

import (
	"context"
	"fmt"

	"resell/internal/models"

	"gorm.io/gorm"
)

// GORMAccountRepository is a GORM implementation of AccountRepository.
type GORMAccountRepository struct {
	db *gorm.DB
}

// NewGORMAccountRepository creates a new instance of GORMAccountRepository.
func NewGORMAccountRepository(db *gorm.DB) *GORMAccountRepository {
	return &GORMAccountRepository{db: db}
}

func (r *GORMAccountRepository) CreateAddress(ctx context.Context, addr *models.Address) error {
	if err := r.db.WithContext(ctx).Create(addr).Error; err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *GORMAccountRepository) GetAddress(ctx context.Context, id string) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).First(&addr, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "address", id)
	}
	return &addr, nil
}

func (r *GORMAccountRepository) ListAddresses(ctx context.Context, userID string) ([]models.Address, error) {
	var out []models.Address
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return out, nil
}

func (r *GORMAccountRepository) CreateBankAccount(ctx context.Context, acc *models.BankAccount) error {
	if err := r.db.WithContext(ctx).Create(acc).Error; err != nil {
		return fmt.Errorf("failed to create bank account: %w", err)
	}
	return nil
}

func (r *GORMAccountRepository) GetBankAccount(ctx context.Context, userID string) (*models.BankAccount, error) {
	var acc models.BankAccount
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&acc).Error; err != nil {
		return nil, lookupErr(err, "bank_account", userID)
	}
	return &acc, nil
}
