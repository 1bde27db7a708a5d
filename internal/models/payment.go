package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks a payment row after the gateway call.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// paymentSuccessKey fills Payment.SuccessKey on successful rows only, so the composite unique
// index (order_id, success_key) admits one success per order while NULLs never collide.
const paymentSuccessKey = "success"

// Payment records the outcome of charging an order.
type Payment struct {
	Model
	OrderID     string          `json:"order_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_payments_order_success,priority:1"`
	SuccessKey  *string         `json:"-" gorm:"type:varchar(16);uniqueIndex:idx_payments_order_success,priority:2"`
	Success     bool            `json:"success"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	ExternalRef string          `json:"external_ref" gorm:"type:varchar(128)"`
	Status      PaymentStatus   `json:"status" gorm:"type:varchar(16);not null"`
	EventID     string          `json:"event_id" gorm:"type:varchar(36)"`
}

// MarkSuccessful flags the payment as the single successful payment of its order.
func (p *Payment) MarkSuccessful() {
	key := paymentSuccessKey
	p.Success = true
	p.SuccessKey = &key
	p.Status = PaymentPaid
}

// Payment methods accepted by the gateway contract.
const (
	PaymentMethodCard    = "CARD"
	PaymentMethodAccount = "ACCOUNT"
)

// PaymentRequest is the buyer-supplied payment instrument. Tokens are opaque to the core.
type PaymentRequest struct {
	Method        string `json:"method" validate:"required,oneof=CARD ACCOUNT"`
	CardToken     string `json:"cardToken,omitempty" validate:"required_if=Method CARD"`
	BankCode      string `json:"bankCode,omitempty" validate:"required_if=Method ACCOUNT"`
	AccountNumber string `json:"accountNumber,omitempty" validate:"required_if=Method ACCOUNT"`
}

// PaymentEvent is the queue message driving asynchronous payment processing.
// OrderID is both the idempotency key and the partition key.
type PaymentEvent struct {
	EventID        string         `json:"eventId"`
	OrderID        string         `json:"orderId"`
	UserEmail      string         `json:"userEmail"`
	PaymentRequest PaymentRequest `json:"paymentRequest"`
	RetryCount     int            `json:"retryCount"`
	CreatedAt      time.Time      `json:"createdAt"`
}
