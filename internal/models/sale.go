package models

import (
	"github.com/shopspring/decimal"

	"resell/internal/statemachine"
)

// SaleStatus is the seller-side fulfillment status.
type SaleStatus string

const (
	SalePendingShipment SaleStatus = "PENDING_SHIPMENT"
	SaleInTransit       SaleStatus = "IN_TRANSIT"
	SaleInStorage       SaleStatus = "IN_STORAGE"
	SaleSold            SaleStatus = "SOLD"
	SaleCancelled       SaleStatus = "CANCELLED"
)

// SaleMachine holds the sale transition table.
var SaleMachine = statemachine.New("sale", statemachine.Table[SaleStatus]{
	SalePendingShipment: {SaleInTransit, SaleInStorage, SaleCancelled},
	SaleInTransit:       {SaleInStorage, SaleSold},
	SaleInStorage:       {SaleSold},
	SaleSold:            {},
	SaleCancelled:       {},
})

// Sale represents a seller's side of a trade, including a snapshot of the payout account
// taken when the sale was created.
type Sale struct {
	Model
	SellerID      string          `json:"seller_id" gorm:"index;type:varchar(36);not null"`
	ItemVariantID string          `json:"item_variant_id" gorm:"index;type:varchar(36);not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(15,2);not null"`
	Status        SaleStatus      `json:"status" gorm:"index;type:varchar(32);not null"`
	SaleBidID     string          `json:"sale_bid_id,omitempty" gorm:"index;type:varchar(36)"`

	PayoutBankName      string `json:"payout_bank_name,omitempty" gorm:"type:varchar(64)"`
	PayoutAccountNumber string `json:"payout_account_number,omitempty" gorm:"type:varchar(64)"`
	PayoutAccountHolder string `json:"payout_account_holder,omitempty" gorm:"type:varchar(100)"`
}

func (s *Sale) GetStatus() SaleStatus  { return s.Status }
func (s *Sale) SetStatus(v SaleStatus) { s.Status = v }

// SnapshotPayout copies the payout account into the sale.
func (s *Sale) SnapshotPayout(acc *BankAccount) {
	if acc == nil {
		return
	}
	s.PayoutBankName = acc.BankName
	s.PayoutAccountNumber = acc.AccountNumber
	s.PayoutAccountHolder = acc.AccountHolder
}
