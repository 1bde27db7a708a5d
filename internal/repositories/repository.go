package repositories

import (
	"context"
	"errors"
	"fmt"

	"resell/internal/errs"

	"gorm.io/gorm"
)

// TxRepos is the set of repositories bound to one database handle, either the pool or an
// open transaction.
type TxRepos interface {
	Users() UserRepository
	Accounts() AccountRepository
	Products() ProductRepository
	Orders() OrderRepository
	Sales() SaleRepository
	Bids() BidRepository
	Payments() PaymentRepository
	Shipments() ShipmentRepository
	Warehouse() WarehouseRepository
}

// TxManager hides transaction begin/commit/rollback from the services.
// Inside fn only the repositories handed to fn may be used.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

// Store is what services depend on: non-transactional repositories plus WithinTx.
type Store interface {
	TxRepos
	TxManager
}

func lookupErr(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(entity, id)
	}
	return fmt.Errorf("failed to get %s %s: %w", entity, id, err)
}

// compareAndSetStatus moves the row from one status to another only if it still has the
// expected status. A lost race is reported as a conflict, a missing row as not found.
func compareAndSetStatus(ctx context.Context, db *gorm.DB, model any, entity, id string, from, to string) error {
	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s %s status: %w", entity, id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to reload %s %s: %w", entity, id, err)
	}
	if count == 0 {
		return errs.NotFound(entity, id)
	}
	return errs.New(errs.CodeConflict, errs.WithEntity(entity, id), errs.WithMessage("status is no longer %s", from))
}
