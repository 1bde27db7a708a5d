package services

import (
	"context"
	"log"
	"time"

	"resell/internal/models"
)

// Notifier publishes notification events. Failures are logged and never returned.
type Notifier struct {
	publisher NotificationPublisher
}

// NewNotifier creates a notifier. A nil publisher disables notifications.
func NewNotifier(publisher NotificationPublisher) *Notifier {
	return &Notifier{publisher: publisher}
}

// Notify sends a notification to userID.
func (n *Notifier) Notify(ctx context.Context, typ, userID, orderID, saleID string) {
	if n == nil || n.publisher == nil {
		log.Printf("notifier: publisher is not initialized. Skipping %s for user %s", typ, userID)
		return
	}
	err := n.publisher.PublishNotification(ctx, models.Notification{
		Type:      typ,
		UserID:    userID,
		OrderID:   orderID,
		SaleID:    saleID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("notifier: failed to publish %s for user %s: %v", typ, userID, err)
	}
}
