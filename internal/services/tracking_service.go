package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"resell/internal/config"
	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/repositories"
	"resell/pkg/carrier"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

// Carrier status texts that map to a specific shipment status.
const (
	CarrierTextDelivered      = "배송완료"
	CarrierTextOutForDelivery = "배송출발"
)

// MapCarrierStatus maps raw carrier text to a shipment status. Unknown text means the
// parcel is still moving.
func MapCarrierStatus(raw string) models.ShipmentStatus {
	switch strings.TrimSpace(raw) {
	case CarrierTextDelivered:
		return models.ShipmentDelivered
	case CarrierTextOutForDelivery:
		return models.ShipmentOutForDelivery
	default:
		return models.ShipmentInTransit
	}
}

// AssignTrackingInput carries the carrier details of a shipment.
type AssignTrackingInput struct {
	Carrier        string `json:"carrier" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

// ReconcileReport summarises one polling pass.
type ReconcileReport struct {
	Polled    int `json:"polled"`
	Updated   int `json:"updated"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

type shipmentKind int

const (
	orderShipment shipmentKind = iota
	sellerShipment
)

type lookup struct {
	kind           shipmentKind
	id             string
	trackingNumber string
	raw            string
	err            error
}

// TrackingService assigns carrier tracking and folds carrier status back into the
// order and sale lifecycles.
type TrackingService struct {
	store    repositories.Store
	orders   *OrderService
	sales    *SaleService
	tracker  carrier.Tracker
	notifier *Notifier
	cfg      config.TrackingConfig
	limiter  *rate.Limiter

	polled    metric.Int64Counter
	failed    metric.Int64Counter
	delivered metric.Int64Counter
}

// NewTrackingService creates a new TrackingService. A nil tracker disables polling.
func NewTrackingService(store repositories.Store, orders *OrderService, sales *SaleService, tracker carrier.Tracker, notifier *Notifier, cfg config.TrackingConfig) *TrackingService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	meter := otel.Meter("resell/tracker")
	s := &TrackingService{
		store:    store,
		orders:   orders,
		sales:    sales,
		tracker:  tracker,
		notifier: notifier,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, cfg.Concurrency),
	}
	s.polled, _ = meter.Int64Counter("tracker.shipments.polled",
		metric.WithDescription("Shipments looked up at the carrier"),
		metric.WithUnit("{shipment}"))
	s.failed, _ = meter.Int64Counter("tracker.shipments.failed",
		metric.WithDescription("Shipments whose lookup or reconciliation failed"),
		metric.WithUnit("{shipment}"))
	s.delivered, _ = meter.Int64Counter("tracker.shipments.delivered",
		metric.WithDescription("Shipments reconciled to DELIVERED"),
		metric.WithUnit("{shipment}"))
	return s
}

// AssignOrderTracking hands the buyer's parcel to a carrier and starts the order's shipment.
func (s *TrackingService) AssignOrderTracking(ctx context.Context, caller Caller, orderID string, in AssignTrackingInput) (*models.OrderShipment, error) {
	if err := caller.requireAdmin("order", orderID); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var shipment *models.OrderShipment
	var order *models.Order
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		if order, err = r.Orders().GetForUpdate(ctx, orderID); err != nil {
			return err
		}
		current, err := r.Shipments().GetOrderShipmentByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if shipment, err = r.Shipments().GetOrderShipmentForUpdate(ctx, current.ID); err != nil {
			return err
		}
		if err := models.ShipmentMachine.Apply(shipment, models.ShipmentInTransit); err != nil {
			return err
		}
		shipment.Carrier = in.Carrier
		shipment.TrackingNumber = in.TrackingNumber
		if err := r.Shipments().SaveOrderShipment(ctx, shipment); err != nil {
			return err
		}
		return s.orders.StartShipment(ctx, r, order)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, models.NotificationShipmentStarted, order.BuyerID, order.ID, "")
	return shipment, nil
}

// AssignSellerTracking records the seller's parcel to the operator and moves the sale in transit.
func (s *TrackingService) AssignSellerTracking(ctx context.Context, caller Caller, saleID string, in AssignTrackingInput) (*models.SellerShipment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var shipment *models.SellerShipment
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		sale, err := r.Sales().GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !caller.owns(sale.SellerID) {
			return errs.Forbidden("sale", saleID)
		}
		current, err := r.Shipments().GetSellerShipmentBySale(ctx, saleID)
		if err != nil {
			return err
		}
		if shipment, err = r.Shipments().GetSellerShipmentForUpdate(ctx, current.ID); err != nil {
			return err
		}
		if err := models.ShipmentMachine.Apply(shipment, models.ShipmentInTransit); err != nil {
			return err
		}
		shipment.Carrier = in.Carrier
		shipment.TrackingNumber = in.TrackingNumber
		if err := r.Shipments().SaveSellerShipment(ctx, shipment); err != nil {
			return err
		}
		return s.sales.transition(ctx, r, sale, models.SaleInTransit)
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// PollAndReconcile looks up every active shipment at the carrier and applies the results.
// Lookups run concurrently with no database lock held; each result is applied in its own
// transaction. One shipment failing never stops the others.
func (s *TrackingService) PollAndReconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	if s.tracker == nil {
		return report, errs.New(errs.CodeExternalTracking, errs.WithMessage("carrier tracker is not configured"))
	}
	orderShips, err := s.store.Shipments().ListActiveOrderShipments(ctx)
	if err != nil {
		return report, err
	}
	sellerShips, err := s.store.Shipments().ListActiveSellerShipments(ctx)
	if err != nil {
		return report, err
	}

	lookups := make([]*lookup, 0, len(orderShips)+len(sellerShips))
	for _, sh := range orderShips {
		lookups = append(lookups, &lookup{kind: orderShipment, id: sh.ID, trackingNumber: sh.TrackingNumber})
	}
	for _, sh := range sellerShips {
		lookups = append(lookups, &lookup{kind: sellerShipment, id: sh.ID, trackingNumber: sh.TrackingNumber})
	}
	s.fetchAll(ctx, lookups)

	for _, p := range lookups {
		report.Polled++
		s.polled.Add(ctx, 1)
		if p.err != nil {
			report.Failed++
			s.failed.Add(ctx, 1)
			log.Printf("tracker: lookup of %s failed: %v", p.trackingNumber, p.err)
			continue
		}
		status := MapCarrierStatus(p.raw)
		var changed bool
		var err error
		if p.kind == orderShipment {
			changed, err = s.applyOrderShipment(ctx, p.id, status)
		} else {
			changed, err = s.applySellerShipment(ctx, p.id, status)
		}
		if err != nil {
			report.Failed++
			s.failed.Add(ctx, 1)
			log.Printf("tracker: failed to reconcile shipment %s (%s): %v", p.id, p.trackingNumber, err)
			continue
		}
		if changed {
			report.Updated++
			if status == models.ShipmentDelivered {
				report.Delivered++
				s.delivered.Add(ctx, 1)
			}
		}
	}
	return report, nil
}

func (s *TrackingService) fetchAll(ctx context.Context, lookups []*lookup) {
	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for _, pr := range lookups {
		p.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					pr.err = errs.Tracking(pr.trackingNumber, fmt.Errorf("panic: %v", r))
				}
			}()
			if err := s.limiter.Wait(ctx); err != nil {
				pr.err = errs.Tracking(pr.trackingNumber, err)
				return
			}
			raw, err := s.tracker.FetchStatus(ctx, pr.trackingNumber)
			if err != nil {
				pr.err = errs.Tracking(pr.trackingNumber, err)
				return
			}
			pr.raw = raw
		})
	}
	p.Wait()
}

// applyOrderShipment advances one buyer-bound shipment. Delivery completes the whole trade.
func (s *TrackingService) applyOrderShipment(ctx context.Context, id string, status models.ShipmentStatus) (bool, error) {
	var order *models.Order
	changed := false
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		sh, err := r.Shipments().GetOrderShipmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !models.ShipmentMachine.CanTransition(sh.Status, status) {
			return nil
		}
		sh.Status = status
		if err := r.Shipments().SaveOrderShipment(ctx, sh); err != nil {
			return err
		}
		changed = true
		if status != models.ShipmentDelivered {
			return nil
		}
		if order, err = r.Orders().GetForUpdate(ctx, sh.OrderID); err != nil {
			return err
		}
		return s.orders.CompleteFulfillment(ctx, r, order)
	})
	if err != nil {
		return false, err
	}
	if order != nil {
		s.notifier.Notify(ctx, models.NotificationItemDelivered, order.BuyerID, order.ID, "")
	}
	return changed, nil
}

// applySellerShipment advances one seller-bound shipment. On arrival a sale shipped into
// storage is stored, and a buyer who chose storage has the item put away for them.
func (s *TrackingService) applySellerShipment(ctx context.Context, id string, status models.ShipmentStatus) (bool, error) {
	changed := false
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		sh, err := r.Shipments().GetSellerShipmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !models.ShipmentMachine.CanTransition(sh.Status, status) {
			return nil
		}
		sh.Status = status
		if err := r.Shipments().SaveSellerShipment(ctx, sh); err != nil {
			return err
		}
		changed = true
		if status != models.ShipmentDelivered {
			return nil
		}
		if err := s.sales.receiveIntoWarehouse(ctx, r, sh.SaleID); err != nil {
			return err
		}
		return s.storeForBuyer(ctx, r, sh.SaleID)
	})
	return changed, err
}

func (s *TrackingService) storeForBuyer(ctx context.Context, r repositories.TxRepos, saleID string) error {
	bid, err := r.Bids().GetSaleBidBySale(ctx, saleID)
	if err != nil {
		return err
	}
	if bid.OrderID == "" {
		return nil
	}
	storage, err := r.Warehouse().FindByOrder(ctx, bid.OrderID)
	if err != nil {
		return err
	}
	if storage == nil || storage.Status != models.WarehouseAssociatedWithOrder {
		return nil
	}
	return s.sales.warehouse.UpdateWarehouseStatus(ctx, r, storage, models.WarehouseInStorage)
}

// Run polls on every tick until ctx is cancelled.
func (s *TrackingService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Printf("tracker: polling disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.PollAndReconcile(ctx)
			if err != nil {
				log.Printf("tracker: poll failed: %v", err)
				continue
			}
			log.Printf("tracker: polled %d, updated %d, delivered %d, failed %d",
				report.Polled, report.Updated, report.Delivered, report.Failed)
		}
	}
}
