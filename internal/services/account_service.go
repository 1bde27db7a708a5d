package services

import (
	"context"

	"resell/internal/models"
	"resell/internal/repositories"
)

// AccountService manages buyer addresses and seller payout accounts.
type AccountService struct {
	repo repositories.AccountRepository
}

// NewAccountService creates a new AccountService.
func NewAccountService(repo repositories.AccountRepository) *AccountService {
	return &AccountService{repo: repo}
}

// AddAddress registers a delivery address for the caller.
func (s *AccountService) AddAddress(ctx context.Context, caller Caller, addr *models.Address) error {
	addr.UserID = caller.UserID
	if err := validateInput(addr); err != nil {
		return err
	}
	return s.repo.CreateAddress(ctx, addr)
}

// ListAddresses lists the caller's addresses.
func (s *AccountService) ListAddresses(ctx context.Context, caller Caller) ([]models.Address, error) {
	return s.repo.ListAddresses(ctx, caller.UserID)
}

// RegisterBankAccount adds a payout account. The latest one is used for new sales.
func (s *AccountService) RegisterBankAccount(ctx context.Context, caller Caller, acc *models.BankAccount) error {
	acc.UserID = caller.UserID
	if err := validateInput(acc); err != nil {
		return err
	}
	return s.repo.CreateBankAccount(ctx, acc)
}

// GetBankAccount returns the caller's current payout account.
func (s *AccountService) GetBankAccount(ctx context.Context, caller Caller) (*models.BankAccount, error) {
	return s.repo.GetBankAccount(ctx, caller.UserID)
}
