package models

import (
	"github.com/shopspring/decimal"

	"resell/internal/statemachine"
)

// BidStatus is shared by OrderBid and SaleBid.
type BidStatus string

const (
	BidPending   BidStatus = "PENDING"
	BidMatched   BidStatus = "MATCHED"
	BidCancelled BidStatus = "CANCELLED"
	BidCompleted BidStatus = "COMPLETED"
)

// BidMachine holds the bid transition table. CANCELLED and COMPLETED are terminal.
var BidMachine = statemachine.New("bid", statemachine.Table[BidStatus]{
	BidPending:   {BidMatched, BidCancelled},
	BidMatched:   {BidCompleted, BidCancelled},
	BidCancelled: {},
	BidCompleted: {},
})

// OrderBid is a buyer's standing offer for an item variant.
// OrderID points at the bid's own Order, SaleID at the matched Sale.
type OrderBid struct {
	Model
	BuyerID           string          `json:"buyer_id" gorm:"index;type:varchar(36);not null"`
	ItemVariantID     string          `json:"item_variant_id" gorm:"index;type:varchar(36);not null"`
	Price             decimal.Decimal `json:"price" gorm:"type:decimal(15,2);not null"`
	Status            BidStatus       `json:"status" gorm:"index;type:varchar(16);not null"`
	OrderID           string          `json:"order_id,omitempty" gorm:"index;type:varchar(36)"`
	SaleID            string          `json:"sale_id,omitempty" gorm:"index;type:varchar(36)"`
	IsInstantPurchase bool            `json:"is_instant_purchase"`
}

func (b *OrderBid) GetStatus() BidStatus  { return b.Status }
func (b *OrderBid) SetStatus(s BidStatus) { b.Status = s }

// SaleBid is a seller's standing offer for an item variant.
// SaleID points at the bid's own Sale, OrderID at the matched Order.
type SaleBid struct {
	Model
	SellerID      string          `json:"seller_id" gorm:"index;type:varchar(36);not null"`
	ItemVariantID string          `json:"item_variant_id" gorm:"index;type:varchar(36);not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(15,2);not null"`
	Status        BidStatus       `json:"status" gorm:"index;type:varchar(16);not null"`
	SaleID        string          `json:"sale_id,omitempty" gorm:"index;type:varchar(36)"`
	OrderID       string          `json:"order_id,omitempty" gorm:"index;type:varchar(36)"`
	IsInstantSale bool            `json:"is_instant_sale"`
}

func (b *SaleBid) GetStatus() BidStatus  { return b.Status }
func (b *SaleBid) SetStatus(s BidStatus) { b.Status = s }
