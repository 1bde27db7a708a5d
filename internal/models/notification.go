package models

import "time"

// Notification types published as fire-and-forget side effects.
const (
	NotificationBidMatched      = "bid.matched"
	NotificationPaymentApproved = "payment.approved"
	NotificationShipmentStarted = "shipment.started"
	NotificationItemDelivered   = "item.delivered"
)

// Notification is the payload handed to the notification queue. Formatting happens downstream.
type Notification struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id,omitempty"`
	SaleID    string    `json:"sale_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
