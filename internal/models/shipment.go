package models

import "resell/internal/statemachine"

// ShipmentStatus is shared by buyer-bound and seller-bound shipments.
type ShipmentStatus string

const (
	ShipmentPending        ShipmentStatus = "PENDING"
	ShipmentInTransit      ShipmentStatus = "IN_TRANSIT"
	ShipmentOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentDelivered      ShipmentStatus = "DELIVERED"
)

// ShipmentMachine only moves forward; DELIVERED may be reached directly from IN_TRANSIT.
var ShipmentMachine = statemachine.New("shipment", statemachine.Table[ShipmentStatus]{
	ShipmentPending:        {ShipmentInTransit},
	ShipmentInTransit:      {ShipmentOutForDelivery, ShipmentDelivered},
	ShipmentOutForDelivery: {ShipmentDelivered},
	ShipmentDelivered:      {},
})

// OrderShipment carries an order from the operator to the buyer.
type OrderShipment struct {
	Model
	OrderID        string         `json:"order_id" gorm:"uniqueIndex;type:varchar(36);not null"`
	AddressID      string         `json:"address_id,omitempty" gorm:"type:varchar(36)"`
	Carrier        string         `json:"carrier,omitempty" gorm:"type:varchar(64)"`
	TrackingNumber string         `json:"tracking_number,omitempty" gorm:"index;type:varchar(64)"`
	Status         ShipmentStatus `json:"status" gorm:"index;type:varchar(32);not null"`
}

func (s *OrderShipment) GetStatus() ShipmentStatus  { return s.Status }
func (s *OrderShipment) SetStatus(v ShipmentStatus) { s.Status = v }

// SellerShipment carries a sold item from the seller to the operator.
type SellerShipment struct {
	Model
	SaleID         string         `json:"sale_id" gorm:"uniqueIndex;type:varchar(36);not null"`
	Carrier        string         `json:"carrier,omitempty" gorm:"type:varchar(64)"`
	TrackingNumber string         `json:"tracking_number,omitempty" gorm:"index;type:varchar(64)"`
	Status         ShipmentStatus `json:"status" gorm:"index;type:varchar(32);not null"`
}

func (s *SellerShipment) GetStatus() ShipmentStatus  { return s.Status }
func (s *SellerShipment) SetStatus(v ShipmentStatus) { s.Status = v }
