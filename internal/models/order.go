package models

import (
	"github.com/shopspring/decimal"

	"resell/internal/statemachine"
)

// OrderStatus is the buyer-side fulfillment status.
type OrderStatus string

const (
	OrderPendingPayment   OrderStatus = "PENDING_PAYMENT"
	OrderPaymentCompleted OrderStatus = "PAYMENT_COMPLETED"
	OrderPreparing        OrderStatus = "PREPARING"
	OrderInWarehouse      OrderStatus = "IN_WAREHOUSE"
	OrderShipmentStarted  OrderStatus = "SHIPMENT_STARTED"
	OrderInTransit        OrderStatus = "IN_TRANSIT"
	OrderRefundRequested  OrderStatus = "REFUND_REQUESTED"
	OrderRefunded         OrderStatus = "REFUNDED"
	OrderCompleted        OrderStatus = "COMPLETED"
)

// OrderMachine holds the authoritative order transition table.
var OrderMachine = statemachine.New("order", statemachine.Table[OrderStatus]{
	OrderPendingPayment:   {OrderPaymentCompleted, OrderCompleted, OrderInWarehouse},
	OrderPaymentCompleted: {OrderPreparing, OrderRefundRequested, OrderInWarehouse},
	OrderPreparing:        {OrderInWarehouse, OrderShipmentStarted},
	OrderInWarehouse:      {OrderShipmentStarted, OrderCompleted},
	OrderShipmentStarted:  {OrderInTransit},
	OrderInTransit:        {OrderCompleted},
	OrderRefundRequested:  {OrderRefunded},
	OrderCompleted:        {},
	OrderRefunded:         {},
})

// Order represents a buyer's purchase of one item variant.
type Order struct {
	Model
	BuyerID           string          `json:"buyer_id" gorm:"index;type:varchar(36);not null"`
	TotalAmount       decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,2);not null"`
	Status            OrderStatus     `json:"status" gorm:"index;type:varchar(32);not null"`
	ShippingAddressID string          `json:"shipping_address_id,omitempty" gorm:"type:varchar(36)"`
	WarehouseOption   bool            `json:"warehouse_option"`
	OrderBidID        string          `json:"order_bid_id,omitempty" gorm:"index;type:varchar(36)"`
	Items             []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (o *Order) GetStatus() OrderStatus  { return o.Status }
func (o *Order) SetStatus(s OrderStatus) { o.Status = s }

// OrderItem represents a single item within an order.
type OrderItem struct {
	Model
	OrderID       string          `json:"order_id" gorm:"index;type:varchar(36);not null"`
	ItemVariantID string          `json:"item_variant_id" gorm:"type:varchar(36);not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(15,2);not null"` // price at the time of match
}
