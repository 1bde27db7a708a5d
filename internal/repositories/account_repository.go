package repositories

import (
	"context"

	"resell/internal/models"
)

// AccountRepository covers buyer addresses and seller payout accounts.
type AccountRepository interface {
	CreateAddress(ctx context.Context, addr *models.Address) error
	GetAddress(ctx context.Context, id string) (*models.Address, error)
	ListAddresses(ctx context.Context, userID string) ([]models.Address, error)
	CreateBankAccount(ctx context.Context, acc *models.BankAccount) error
	// GetBankAccount returns the most recently registered payout account of the user.
	GetBankAccount(ctx context.Context, userID string) (*models.BankAccount, error)
}
