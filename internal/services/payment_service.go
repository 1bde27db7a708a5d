package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"resell/internal/config"
	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/repositories"
	"resell/pkg/payment"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var errDuplicatePayment = errors.New("order already has a successful payment")

// PaymentService publishes payment events and consumes them exactly once per order.
type PaymentService struct {
	store     repositories.Store
	orders    *OrderService
	gateway   payment.Gateway
	publisher EventPublisher
	notifier  *Notifier
	cfg       config.PaymentConfig

	processed metric.Int64Counter
	duplicate metric.Int64Counter
	retried   metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store repositories.Store, orders *OrderService, gateway payment.Gateway, publisher EventPublisher, notifier *Notifier, cfg config.PaymentConfig) *PaymentService {
	meter := otel.Meter("resell/payment")
	s := &PaymentService{
		store:     store,
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
	}
	s.processed, _ = meter.Int64Counter("payment.events.processed",
		metric.WithDescription("Payment events that produced a successful payment"),
		metric.WithUnit("{event}"))
	s.duplicate, _ = meter.Int64Counter("payment.events.duplicate",
		metric.WithDescription("Payment events skipped because the order was already paid"),
		metric.WithUnit("{event}"))
	s.retried, _ = meter.Int64Counter("payment.events.retried",
		metric.WithDescription("Payment events republished to the retry queue"),
		metric.WithUnit("{event}"))
	s.dropped, _ = meter.Int64Counter("payment.events.dropped",
		metric.WithDescription("Payment events dropped after exhausting retries"),
		metric.WithUnit("{event}"))
	s.failed, _ = meter.Int64Counter("payment.events.failed",
		metric.WithDescription("Payment events that failed without retry"),
		metric.WithUnit("{event}"))
	return s
}

// Publish enqueues a payment event for orderID.
func (s *PaymentService) Publish(ctx context.Context, orderID, userEmail string, req models.PaymentRequest) (*models.PaymentEvent, error) {
	if s.publisher == nil {
		return nil, errors.New("payment publisher is not initialized")
	}
	evt := &models.PaymentEvent{
		EventID:        uuid.NewString(),
		OrderID:        orderID,
		UserEmail:      userEmail,
		PaymentRequest: req,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.publisher.PublishPayment(ctx, evt); err != nil {
		return nil, fmt.Errorf("failed to publish payment for order %s: %w", orderID, err)
	}
	return evt, nil
}

// RequestPayment lets the buyer pay a matched order that is still awaiting payment. The
// outcome is observable only through the order status.
func (s *PaymentService) RequestPayment(ctx context.Context, caller Caller, orderID string, req models.PaymentRequest) (*models.PaymentEvent, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.owns(order.BuyerID) {
		return nil, errs.Forbidden("order", orderID)
	}
	if err := s.orders.checkPayable(ctx, s.store, order); err != nil {
		return nil, err
	}
	paid, err := s.store.Payments().FindSuccessful(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if paid != nil {
		return nil, errs.Invalid("order %s is already paid", orderID)
	}
	buyer, err := s.store.Users().GetByID(ctx, order.BuyerID)
	if err != nil {
		return nil, err
	}
	return s.Publish(ctx, orderID, buyer.Email, req)
}

// Consume processes one payment event. An order that already has a successful payment is
// a no-op, which makes redelivery safe. The payment row and the order transition commit
// together; if that commit fails the charge is voided.
func (s *PaymentService) Consume(ctx context.Context, evt *models.PaymentEvent) error {
	paid, err := s.store.Payments().FindSuccessful(ctx, evt.OrderID)
	if err != nil {
		return err
	}
	if paid != nil {
		s.duplicate.Add(ctx, 1)
		log.Printf("payment: order %s already paid by %s, skipping event %s", evt.OrderID, paid.ExternalRef, evt.EventID)
		return nil
	}

	order, err := s.store.Orders().GetByID(ctx, evt.OrderID)
	if err != nil {
		return err
	}
	user, err := s.store.Users().GetByEmail(ctx, evt.UserEmail)
	if err != nil {
		return err
	}
	if user.ID != order.BuyerID {
		return errs.New(errs.CodePaymentUserMismatch, errs.WithEntity("order", order.ID),
			errs.WithMessage("user %s is not the buyer", evt.UserEmail))
	}
	if err := validateInput(evt.PaymentRequest); err != nil {
		return err
	}
	if err := s.orders.checkPayable(ctx, s.store, order); err != nil {
		return err
	}

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return errs.Gateway("authenticate", err)
	}
	ref, err := s.gateway.Charge(ctx, token, evt.PaymentRequest, order.TotalAmount)
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return errs.New(errs.CodeInvalid, errs.WithEntity("order", order.ID), errs.WithMessage("charge declined"), errs.WithCause(err))
		}
		return errs.Gateway("charge", err)
	}

	err = s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		locked, err := r.Orders().GetForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		existing, err := r.Payments().FindSuccessful(ctx, order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errDuplicatePayment
		}
		p := &models.Payment{
			OrderID:     order.ID,
			Amount:      order.TotalAmount,
			ExternalRef: ref,
			EventID:     evt.EventID,
		}
		p.MarkSuccessful()
		if err := r.Payments().Create(ctx, p); err != nil {
			return err
		}
		return s.orders.ApplyPayment(ctx, r, locked)
	})
	if err != nil {
		s.voidCharge(ctx, token, ref)
		if errors.Is(err, errDuplicatePayment) {
			s.duplicate.Add(ctx, 1)
			return nil
		}
		return err
	}

	s.processed.Add(ctx, 1)
	s.notifier.Notify(ctx, models.NotificationPaymentApproved, order.BuyerID, order.ID, "")
	return nil
}

// Handle consumes a payment-processing event. Retryable failures are republished with a
// delay; everything else is logged and acknowledged. A returned error means the event
// could not be handed off and must be redelivered.
func (s *PaymentService) Handle(ctx context.Context, evt *models.PaymentEvent) error {
	err := s.Consume(ctx, evt)
	if err == nil {
		return nil
	}
	if !errs.Retryable(err) {
		s.failed.Add(ctx, 1)
		log.Printf("payment: event %s for order %s failed without retry: %v", evt.EventID, evt.OrderID, err)
		return nil
	}

	next := *evt
	next.RetryCount = evt.RetryCount + 1
	delay := s.RetryDelay(next.RetryCount)
	if perr := s.publisher.PublishPaymentRetry(ctx, &next, delay); perr != nil {
		return fmt.Errorf("failed to schedule retry %d for order %s: %w", next.RetryCount, evt.OrderID, perr)
	}
	s.retried.Add(ctx, 1)
	log.Printf("payment: event %s for order %s failed (%v), retry %d in %s", evt.EventID, evt.OrderID, err, next.RetryCount, delay)
	return nil
}

// HandleRetry consumes a payment-retry event. Events past the retry ceiling are dropped.
func (s *PaymentService) HandleRetry(ctx context.Context, evt *models.PaymentEvent) error {
	if evt.RetryCount > s.cfg.MaxRetries {
		s.dropped.Add(ctx, 1)
		log.Printf("payment: dropping event %s for order %s after %d retries", evt.EventID, evt.OrderID, evt.RetryCount-1)
		return nil
	}
	return s.Handle(ctx, evt)
}

// RetryDelay is the capped linear backoff for the n-th retry.
func (s *PaymentService) RetryDelay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := s.cfg.RetryBaseDelay * time.Duration(n)
	if s.cfg.RetryMaxDelay > 0 && d > s.cfg.RetryMaxDelay {
		return s.cfg.RetryMaxDelay
	}
	return d
}

func (s *PaymentService) voidCharge(ctx context.Context, token, ref string) {
	ok, err := s.gateway.Cancel(ctx, token, ref)
	if err != nil || !ok {
		log.Printf("payment: failed to void charge %s: ok=%t err=%v", ref, ok, err)
	}
}
