package models

// All lists every persisted model for gorm AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Address{}, &BankAccount{},
		&Product{}, &ItemVariant{},
		&Order{}, &OrderItem{}, &Payment{}, &OrderShipment{},
		&Sale{}, &SellerShipment{},
		&OrderBid{}, &SaleBid{},
		&WarehouseStorage{},
	}
}
