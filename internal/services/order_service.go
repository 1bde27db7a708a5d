package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/repositories"
	"resell/pkg/payment"
)

// OrderService owns the buyer side of a trade: payment application, shipment start,
// completion and refunds.
type OrderService struct {
	store     repositories.Store
	sales     *SaleService
	warehouse *WarehouseService
	gateway   payment.Gateway
}

// NewOrderService creates a new OrderService.
func NewOrderService(store repositories.Store, sales *SaleService, warehouse *WarehouseService, gateway payment.Gateway) *OrderService {
	return &OrderService{
		store:     store,
		sales:     sales,
		warehouse: warehouse,
		gateway:   gateway,
	}
}

// GetOrder returns an order visible to its buyer or an admin.
func (s *OrderService) GetOrder(ctx context.Context, caller Caller, id string) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(order.BuyerID) {
		return nil, errs.Forbidden("order", id)
	}
	return order, nil
}

// ListOrdersByBuyer lists the orders of buyerID, newest first.
func (s *OrderService) ListOrdersByBuyer(ctx context.Context, caller Caller, buyerID string) ([]models.Order, error) {
	if !caller.owns(buyerID) {
		return nil, errs.Forbidden("user", buyerID)
	}
	return s.store.Orders().ListByBuyer(ctx, buyerID)
}

// UpdateStatus is the administrative status change. It is bound by the table and runs the
// same cascade as the dedicated operation for the target status.
func (s *OrderService) UpdateStatus(ctx context.Context, caller Caller, id string, to models.OrderStatus) (*models.Order, error) {
	if err := caller.requireAdmin("order", id); err != nil {
		return nil, err
	}
	if to == models.OrderRefunded {
		return s.CompleteRefund(ctx, caller, id)
	}
	var order *models.Order
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		order, err = r.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !models.OrderMachine.CanTransition(order.Status, to) {
			return errs.InvalidTransition(models.OrderMachine.Name(), string(order.Status), string(to))
		}
		if order.Status == models.OrderPendingPayment {
			if err := s.requirePayment(ctx, r, order); err != nil {
				return err
			}
		}
		switch to {
		case models.OrderCompleted:
			if err := s.CompleteFulfillment(ctx, r, order); err != nil {
				return err
			}
			return closeOrderShipment(ctx, r, order.ID)
		case models.OrderInWarehouse:
			if err := s.transition(ctx, r, order, to); err != nil {
				return err
			}
			_, err := s.warehouse.CreateOrderStorage(ctx, r, order)
			return err
		default:
			return s.transition(ctx, r, order, to)
		}
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// requirePayment guards every way out of PENDING_PAYMENT: the bid must be matched and a
// successful payment must be on record.
func (s *OrderService) requirePayment(ctx context.Context, r repositories.TxRepos, order *models.Order) error {
	if err := s.checkPayable(ctx, r, order); err != nil {
		return err
	}
	paid, err := r.Payments().FindSuccessful(ctx, order.ID)
	if err != nil {
		return err
	}
	if paid == nil {
		return errs.New(errs.CodeInvalid, errs.WithEntity("order", order.ID), errs.WithMessage("order has no successful payment"))
	}
	return nil
}

// closeOrderShipment marks a shipment still on its way as delivered so the tracker stops
// polling an order that was completed by hand.
func closeOrderShipment(ctx context.Context, r repositories.TxRepos, orderID string) error {
	sh, err := r.Shipments().GetOrderShipmentByOrder(ctx, orderID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !models.ShipmentMachine.CanTransition(sh.Status, models.ShipmentDelivered) {
		return nil
	}
	if err := models.ShipmentMachine.Apply(sh, models.ShipmentDelivered); err != nil {
		return err
	}
	return r.Shipments().SaveOrderShipment(ctx, sh)
}

// RequestRefund lets the buyer ask for a refund of a paid order that has not shipped.
func (s *OrderService) RequestRefund(ctx context.Context, caller Caller, id string) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		order, err = r.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !caller.owns(order.BuyerID) {
			return errs.Forbidden("order", id)
		}
		return s.transition(ctx, r, order, models.OrderRefundRequested)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteRefund voids the charge at the gateway, then marks the order REFUNDED and the
// payment REFUNDED. The order bid is cancelled, and so are the matched sale and its bid,
// which leaves no side of the trade linked to a dead order.
func (s *OrderService) CompleteRefund(ctx context.Context, caller Caller, id string) (*models.Order, error) {
	if err := caller.requireAdmin("order", id); err != nil {
		return nil, err
	}
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.OrderMachine.CanTransition(order.Status, models.OrderRefunded) {
		return nil, errs.InvalidTransition(models.OrderMachine.Name(), string(order.Status), string(models.OrderRefunded))
	}
	if err := s.checkSaleCancellable(ctx, order); err != nil {
		return nil, err
	}
	paid, err := s.store.Payments().FindSuccessful(ctx, id)
	if err != nil {
		return nil, err
	}
	if paid == nil {
		return nil, errs.NotFound("payment", id)
	}

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return nil, errs.Gateway("authenticate", err)
	}
	cancelled, err := s.gateway.Cancel(ctx, token, paid.ExternalRef)
	if err != nil {
		return nil, errs.Gateway("cancel", err)
	}
	if !cancelled {
		log.Printf("order: gateway had no live charge %s for order %s", paid.ExternalRef, id)
	}

	err = s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		locked, err := r.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, r, locked, models.OrderRefunded); err != nil {
			return err
		}
		order = locked
		if err := r.Payments().UpdateStatus(ctx, paid.ID, models.PaymentRefunded); err != nil {
			return err
		}
		bid, err := r.Bids().GetOrderBid(ctx, locked.OrderBidID)
		if err != nil {
			return err
		}
		if models.BidMachine.CanTransition(bid.Status, models.BidCancelled) {
			if err := transitionOrderBid(ctx, r, bid, models.BidCancelled); err != nil {
				return err
			}
		}
		if bid.SaleID == "" {
			return nil
		}
		return s.sales.cancelMatched(ctx, r, bid.SaleID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// checkSaleCancellable refuses a refund once the seller's item has left PENDING_SHIPMENT.
func (s *OrderService) checkSaleCancellable(ctx context.Context, order *models.Order) error {
	bid, err := s.store.Bids().GetOrderBid(ctx, order.OrderBidID)
	if err != nil {
		return err
	}
	if bid.SaleID == "" {
		return nil
	}
	sale, err := s.store.Sales().GetByID(ctx, bid.SaleID)
	if err != nil {
		return err
	}
	if !models.SaleMachine.CanTransition(sale.Status, models.SaleCancelled) {
		return errs.InvalidTransition(models.SaleMachine.Name(), string(sale.Status), string(models.SaleCancelled))
	}
	return nil
}

// ConfirmWarehouseReceipt completes an order whose buyer keeps the item in the warehouse.
func (s *OrderService) ConfirmWarehouseReceipt(ctx context.Context, caller Caller, id string) (*models.Order, error) {
	if err := caller.requireAdmin("order", id); err != nil {
		return nil, err
	}
	var order *models.Order
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		order, err = r.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != models.OrderInWarehouse {
			return errs.InvalidTransition(models.OrderMachine.Name(), string(order.Status), string(models.OrderCompleted))
		}
		return s.CompleteFulfillment(ctx, r, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// checkPayable reports whether the order can accept a payment: it must await payment and
// its bid must already be matched to a sale.
func (s *OrderService) checkPayable(ctx context.Context, r repositories.TxRepos, order *models.Order) error {
	if !models.OrderMachine.CanTransition(order.Status, models.OrderPaymentCompleted) {
		return errs.InvalidTransition(models.OrderMachine.Name(), string(order.Status), string(models.OrderPaymentCompleted))
	}
	bid, err := r.Bids().GetOrderBid(ctx, order.OrderBidID)
	if err != nil {
		return err
	}
	if bid.Status != models.BidMatched || bid.SaleID == "" {
		return errs.New(errs.CodeInvalid, errs.WithEntity("order_bid", bid.ID), errs.WithMessage("bid is %s and has no matched sale", bid.Status))
	}
	return nil
}

// ApplyPayment advances a freshly paid order inside the payment transaction:
// PAYMENT_COMPLETED, then PREPARING or, when the buyer chose storage, IN_WAREHOUSE.
func (s *OrderService) ApplyPayment(ctx context.Context, r repositories.TxRepos, order *models.Order) error {
	if err := s.checkPayable(ctx, r, order); err != nil {
		return err
	}
	if err := s.transition(ctx, r, order, models.OrderPaymentCompleted); err != nil {
		return err
	}
	if !order.WarehouseOption {
		return s.transition(ctx, r, order, models.OrderPreparing)
	}
	if err := s.transition(ctx, r, order, models.OrderInWarehouse); err != nil {
		return err
	}
	_, err := s.warehouse.CreateOrderStorage(ctx, r, order)
	return err
}

// StartShipment moves a prepared or stored order through SHIPMENT_STARTED to IN_TRANSIT.
func (s *OrderService) StartShipment(ctx context.Context, r repositories.TxRepos, order *models.Order) error {
	if err := s.transition(ctx, r, order, models.OrderShipmentStarted); err != nil {
		return err
	}
	return s.transition(ctx, r, order, models.OrderInTransit)
}

// CompleteFulfillment is the delivery cascade: order COMPLETED, the matched sale SOLD,
// both bids COMPLETED and any warehouse storage SOLD, all in the caller's transaction.
func (s *OrderService) CompleteFulfillment(ctx context.Context, r repositories.TxRepos, order *models.Order) error {
	if err := s.transition(ctx, r, order, models.OrderCompleted); err != nil {
		return err
	}
	bid, err := r.Bids().GetOrderBid(ctx, order.OrderBidID)
	if err != nil {
		return err
	}
	if bid.SaleID != "" {
		if err := s.sales.markSold(ctx, r, bid.SaleID); err != nil {
			return err
		}
	}
	if err := transitionOrderBid(ctx, r, bid, models.BidCompleted); err != nil {
		return err
	}
	return s.warehouse.UpdateWarehouseStatusToSold(ctx, r, order.ID, bid.SaleID)
}

func (s *OrderService) transition(ctx context.Context, r repositories.TxRepos, order *models.Order, to models.OrderStatus) error {
	from := order.Status
	if err := models.OrderMachine.Apply(order, to); err != nil {
		return err
	}
	if err := r.Orders().UpdateStatus(ctx, order.ID, from, to); err != nil {
		order.Status = from
		return fmt.Errorf("order %s: %w", order.ID, err)
	}
	return nil
}
