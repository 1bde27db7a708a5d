package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"resell/internal/models"
)

// EventHandler processes one payment event.
type EventHandler func(ctx context.Context, evt *models.PaymentEvent) error

// EventMiddleware wraps an EventHandler.
type EventMiddleware func(EventHandler) EventHandler

// Chain applies middlewares so the first one is outermost.
func Chain(h EventHandler, mws ...EventMiddleware) EventHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// WithLogging logs each event and how long it took.
func WithLogging(prefix string) EventMiddleware {
	return func(next EventHandler) EventHandler {
		return func(ctx context.Context, evt *models.PaymentEvent) error {
			start := time.Now()
			err := next(ctx, evt)
			if err != nil {
				log.Printf("%s: event %s order %s retry %d failed after %s: %v", prefix, evt.EventID, evt.OrderID, evt.RetryCount, time.Since(start), err)
				return err
			}
			log.Printf("%s: event %s order %s retry %d handled in %s", prefix, evt.EventID, evt.OrderID, evt.RetryCount, time.Since(start))
			return nil
		}
	}
}

// WithRecover turns a panic in the handler into an error so the partition keeps running.
func WithRecover() EventMiddleware {
	return func(next EventHandler) EventHandler {
		return func(ctx context.Context, evt *models.PaymentEvent) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("payment handler panic for order %s: %v", evt.OrderID, r)
				}
			}()
			return next(ctx, evt)
		}
	}
}
