package repositories

import (
	"context"

	"gorm.io/gorm"
)

// GormStore bundles the GORM repositories over one handle and implements Store.
type GormStore struct {
	db        *gorm.DB
	users     *GORMUserRepository
	accounts  *GORMAccountRepository
	products  *GORMProductRepository
	orders    *GORMOrderRepository
	sales     *GORMSaleRepository
	bids      *GORMBidRepository
	payments  *GORMPaymentRepository
	shipments *GORMShipmentRepository
	warehouse *GORMWarehouseRepository
}

// NewGormStore creates repositories bound to db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:        db,
		users:     NewGORMUserRepository(db),
		accounts:  NewGORMAccountRepository(db),
		products:  NewGORMProductRepository(db),
		orders:    NewGORMOrderRepository(db),
		sales:     NewGORMSaleRepository(db),
		bids:      NewGORMBidRepository(db),
		payments:  NewGORMPaymentRepository(db),
		shipments: NewGORMShipmentRepository(db),
		warehouse: NewGORMWarehouseRepository(db),
	}
}

func (s *GormStore) Users() UserRepository          { return s.users }
func (s *GormStore) Accounts() AccountRepository    { return s.accounts }
func (s *GormStore) Products() ProductRepository    { return s.products }
func (s *GormStore) Orders() OrderRepository        { return s.orders }
func (s *GormStore) Sales() SaleRepository          { return s.sales }
func (s *GormStore) Bids() BidRepository            { return s.bids }
func (s *GormStore) Payments() PaymentRepository    { return s.payments }
func (s *GormStore) Shipments() ShipmentRepository  { return s.shipments }
func (s *GormStore) Warehouse() WarehouseRepository { return s.warehouse }

// WithinTx runs fn in a transaction. The repositories passed to fn are rebuilt over the
// transaction handle; fn returning an error rolls everything back.
func (s *GormStore) WithinTx(ctx context.Context, fn func(r TxRepos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}
