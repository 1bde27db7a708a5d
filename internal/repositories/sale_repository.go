package repositories

import (
	"context"

	"resell/internal/models"
)

// SaleRepository defines the interface for sale data access.
type SaleRepository interface {
	Create(ctx context.Context, sale *models.Sale) error
	GetByID(ctx context.Context, id string) (*models.Sale, error)
	GetForUpdate(ctx context.Context, id string) (*models.Sale, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.Sale, error)
	UpdateStatus(ctx context.Context, id string, from, to models.SaleStatus) error
	Delete(ctx context.Context, id string) error
}
