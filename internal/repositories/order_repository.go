package repositories

import (
	"context"

	"resell/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetForUpdate locks the order row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	// UpdateStatus writes to only while the row still has status from.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	// Delete removes the order and its items.
	Delete(ctx context.Context, id string) error
}
