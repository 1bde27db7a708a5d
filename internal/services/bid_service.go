package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderBidInput is a buyer's standing offer.
type CreateOrderBidInput struct {
	ItemVariantID   string          `json:"item_variant_id" validate:"required"`
	Price           decimal.Decimal `json:"price"`
	AddressID       string          `json:"address_id" validate:"required_without=WarehouseOption"`
	WarehouseOption bool            `json:"warehouse_option"`
}

// CreateInstantOrderBidInput buys the item of an existing sale bid at its price.
type CreateInstantOrderBidInput struct {
	SaleBidID       string                `json:"sale_bid_id" validate:"required"`
	AddressID       string                `json:"address_id" validate:"required_without=WarehouseOption"`
	WarehouseOption bool                  `json:"warehouse_option"`
	PaymentRequest  models.PaymentRequest `json:"payment_request"`
}

// CreateSaleBidInput is a seller's standing offer.
type CreateSaleBidInput struct {
	ItemVariantID string          `json:"item_variant_id" validate:"required"`
	Price         decimal.Decimal `json:"price"`
}

// CreateInstantSaleBidInput sells into an existing order bid at its price.
type CreateInstantSaleBidInput struct {
	OrderBidID string `json:"order_bid_id" validate:"required"`
}

// BidService creates bids and pairs buyers with sellers.
type BidService struct {
	store    repositories.Store
	payments *PaymentService
	notifier *Notifier
}

// NewBidService creates a new BidService.
func NewBidService(store repositories.Store, payments *PaymentService, notifier *Notifier) *BidService {
	return &BidService{
		store:    store,
		payments: payments,
		notifier: notifier,
	}
}

// CreateOrderBid opens an order in PENDING_PAYMENT together with its PENDING order bid.
func (s *BidService) CreateOrderBid(ctx context.Context, caller Caller, in CreateOrderBidInput) (*models.OrderBid, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Price.IsPositive() {
		return nil, errs.Invalid("price must be positive")
	}
	if _, err := s.store.Products().GetVariant(ctx, in.ItemVariantID); err != nil {
		return nil, err
	}
	if err := s.checkAddress(ctx, caller, in.AddressID); err != nil {
		return nil, err
	}

	bid := &models.OrderBid{
		BuyerID:       caller.UserID,
		ItemVariantID: in.ItemVariantID,
		Price:         in.Price,
		Status:        models.BidPending,
	}
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		return s.openOrder(ctx, r, bid, in.AddressID, in.WarehouseOption)
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// CreateInstantOrderBid buys an existing sale bid outright. The sale bid is claimed with a
// compare-and-set so only one of several concurrent buyers wins; the others get
// bid_already_matched. Payment is published once the match has committed.
func (s *BidService) CreateInstantOrderBid(ctx context.Context, caller Caller, in CreateInstantOrderBidInput) (*models.OrderBid, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	saleBid, err := s.store.Bids().GetSaleBid(ctx, in.SaleBidID)
	if err != nil {
		return nil, err
	}
	if err := matchable("sale_bid", saleBid.ID, saleBid.Status); err != nil {
		return nil, err
	}
	if saleBid.SellerID == caller.UserID {
		return nil, errs.Invalid("cannot buy from your own sale bid")
	}
	if err := s.checkAddress(ctx, caller, in.AddressID); err != nil {
		return nil, err
	}

	bid := &models.OrderBid{
		BuyerID:           caller.UserID,
		ItemVariantID:     saleBid.ItemVariantID,
		Price:             saleBid.Price,
		Status:            models.BidMatched,
		SaleID:            saleBid.SaleID,
		IsInstantPurchase: true,
	}
	err = s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		bid.OrderID = uuid.NewString()
		if err := r.Bids().MatchSaleBid(ctx, saleBid.ID, bid.OrderID); err != nil {
			return err
		}
		return s.openOrder(ctx, r, bid, in.AddressID, in.WarehouseOption)
	})
	if err != nil {
		return nil, err
	}
	s.notifyMatched(ctx, bid.BuyerID, saleBid.SellerID, bid.OrderID, saleBid.SaleID)

	buyer, err := s.store.Users().GetByID(ctx, caller.UserID)
	if err != nil {
		return bid, err
	}
	if _, err := s.payments.Publish(ctx, bid.OrderID, buyer.Email, in.PaymentRequest); err != nil {
		return bid, fmt.Errorf("order %s matched but payment was not queued: %w", bid.OrderID, err)
	}
	return bid, nil
}

// CreateSaleBid opens a sale in PENDING_SHIPMENT together with its PENDING sale bid.
func (s *BidService) CreateSaleBid(ctx context.Context, caller Caller, in CreateSaleBidInput) (*models.SaleBid, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Price.IsPositive() {
		return nil, errs.Invalid("price must be positive")
	}
	if _, err := s.store.Products().GetVariant(ctx, in.ItemVariantID); err != nil {
		return nil, err
	}
	account, err := s.store.Accounts().GetBankAccount(ctx, caller.UserID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	bid := &models.SaleBid{
		SellerID:      caller.UserID,
		ItemVariantID: in.ItemVariantID,
		Price:         in.Price,
		Status:        models.BidPending,
	}
	err = s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		return s.openSale(ctx, r, bid, account)
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// CreateInstantSaleBid sells into an existing order bid. The seller must have a payout
// account; it is copied into the sale.
func (s *BidService) CreateInstantSaleBid(ctx context.Context, caller Caller, in CreateInstantSaleBidInput) (*models.SaleBid, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	orderBid, err := s.store.Bids().GetOrderBid(ctx, in.OrderBidID)
	if err != nil {
		return nil, err
	}
	if err := matchable("order_bid", orderBid.ID, orderBid.Status); err != nil {
		return nil, err
	}
	if orderBid.BuyerID == caller.UserID {
		return nil, errs.Invalid("cannot sell into your own order bid")
	}
	account, err := s.store.Accounts().GetBankAccount(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	bid := &models.SaleBid{
		SellerID:      caller.UserID,
		ItemVariantID: orderBid.ItemVariantID,
		Price:         orderBid.Price,
		Status:        models.BidMatched,
		OrderID:       orderBid.OrderID,
		IsInstantSale: true,
	}
	err = s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		bid.SaleID = uuid.NewString()
		if err := r.Bids().MatchOrderBid(ctx, orderBid.ID, bid.SaleID); err != nil {
			return err
		}
		return s.openSale(ctx, r, bid, account)
	})
	if err != nil {
		return nil, err
	}
	s.notifyMatched(ctx, orderBid.BuyerID, bid.SellerID, orderBid.OrderID, bid.SaleID)
	return bid, nil
}

// MatchOrderBid pairs a pending order bid with a pending sale bid for the same variant.
// Both rows are claimed in one transaction; either claim failing rolls back the other.
func (s *BidService) MatchOrderBid(ctx context.Context, caller Caller, orderBidID, saleBidID string) error {
	if err := caller.requireAdmin("order_bid", orderBidID); err != nil {
		return err
	}
	var orderBid *models.OrderBid
	var saleBid *models.SaleBid
	err := s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		if orderBid, err = r.Bids().GetOrderBid(ctx, orderBidID); err != nil {
			return err
		}
		if saleBid, err = r.Bids().GetSaleBid(ctx, saleBidID); err != nil {
			return err
		}
		if orderBid.ItemVariantID != saleBid.ItemVariantID {
			return errs.Invalid("order bid %s and sale bid %s are for different variants", orderBidID, saleBidID)
		}
		if err := r.Bids().MatchOrderBid(ctx, orderBid.ID, saleBid.SaleID); err != nil {
			return err
		}
		return r.Bids().MatchSaleBid(ctx, saleBid.ID, orderBid.OrderID)
	})
	if err != nil {
		return err
	}
	s.notifyMatched(ctx, orderBid.BuyerID, saleBid.SellerID, orderBid.OrderID, saleBid.SaleID)
	return nil
}

// MatchSaleBid is MatchOrderBid seen from the seller side.
func (s *BidService) MatchSaleBid(ctx context.Context, caller Caller, saleBidID, orderBidID string) error {
	return s.MatchOrderBid(ctx, caller, orderBidID, saleBidID)
}

// DeleteOrderBid removes an unmatched order bid together with its order and shipment.
func (s *BidService) DeleteOrderBid(ctx context.Context, caller Caller, id string) error {
	return s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		bid, err := r.Bids().GetOrderBid(ctx, id)
		if err != nil {
			return err
		}
		if !caller.owns(bid.BuyerID) {
			return errs.Forbidden("order_bid", id)
		}
		// The conditional delete goes first so a match committed after the read above
		// rolls the whole removal back.
		if err := r.Bids().DeleteOrderBid(ctx, id); err != nil {
			return err
		}
		if bid.OrderID == "" {
			return nil
		}
		if err := r.Shipments().DeleteOrderShipment(ctx, bid.OrderID); err != nil {
			return err
		}
		return r.Orders().Delete(ctx, bid.OrderID)
	})
}

// DeleteSaleBid removes an unmatched sale bid together with its sale and shipment.
func (s *BidService) DeleteSaleBid(ctx context.Context, caller Caller, id string) error {
	return s.store.WithinTx(ctx, func(r repositories.TxRepos) error {
		bid, err := r.Bids().GetSaleBid(ctx, id)
		if err != nil {
			return err
		}
		if !caller.owns(bid.SellerID) {
			return errs.Forbidden("sale_bid", id)
		}
		if err := r.Bids().DeleteSaleBid(ctx, id); err != nil {
			return err
		}
		if bid.SaleID == "" {
			return nil
		}
		if err := r.Shipments().DeleteSellerShipment(ctx, bid.SaleID); err != nil {
			return err
		}
		return r.Sales().Delete(ctx, bid.SaleID)
	})
}

// GetOrderBid returns an order bid visible to its buyer or an admin.
func (s *BidService) GetOrderBid(ctx context.Context, caller Caller, id string) (*models.OrderBid, error) {
	bid, err := s.store.Bids().GetOrderBid(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(bid.BuyerID) {
		return nil, errs.Forbidden("order_bid", id)
	}
	return bid, nil
}

// GetSaleBid returns a sale bid visible to its seller or an admin.
func (s *BidService) GetSaleBid(ctx context.Context, caller Caller, id string) (*models.SaleBid, error) {
	bid, err := s.store.Bids().GetSaleBid(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(bid.SellerID) {
		return nil, errs.Forbidden("sale_bid", id)
	}
	return bid, nil
}

// ListPendingOrderBids lists open buy offers for a variant, highest price first.
func (s *BidService) ListPendingOrderBids(ctx context.Context, itemVariantID string) ([]models.OrderBid, error) {
	return s.store.Bids().ListPendingOrderBids(ctx, itemVariantID)
}

// ListPendingSaleBids lists open sell offers for a variant, lowest price first.
func (s *BidService) ListPendingSaleBids(ctx context.Context, itemVariantID string) ([]models.SaleBid, error) {
	return s.store.Bids().ListPendingSaleBids(ctx, itemVariantID)
}

func (s *BidService) checkAddress(ctx context.Context, caller Caller, addressID string) error {
	if addressID == "" {
		return nil
	}
	addr, err := s.store.Accounts().GetAddress(ctx, addressID)
	if err != nil {
		return err
	}
	if addr.UserID != caller.UserID {
		return errs.Forbidden("address", addressID)
	}
	return nil
}

// openOrder creates the bid's order, its single item and its pending shipment, and links
// the order and bid to each other. bid.OrderID may be preassigned.
func (s *BidService) openOrder(ctx context.Context, r repositories.TxRepos, bid *models.OrderBid, addressID string, warehouse bool) error {
	if bid.OrderID == "" {
		bid.OrderID = uuid.NewString()
	}
	bid.ID = uuid.NewString()
	order := &models.Order{
		Model:             models.Model{ID: bid.OrderID},
		BuyerID:           bid.BuyerID,
		TotalAmount:       bid.Price,
		Status:            models.OrderPendingPayment,
		ShippingAddressID: addressID,
		WarehouseOption:   warehouse,
		OrderBidID:        bid.ID,
		Items: []models.OrderItem{{
			ItemVariantID: bid.ItemVariantID,
			Price:         bid.Price,
		}},
	}
	if err := r.Orders().Create(ctx, order); err != nil {
		return err
	}
	if err := r.Bids().CreateOrderBid(ctx, bid); err != nil {
		return err
	}
	return r.Shipments().CreateOrderShipment(ctx, &models.OrderShipment{
		OrderID:   order.ID,
		AddressID: addressID,
		Status:    models.ShipmentPending,
	})
}

// openSale creates the bid's sale and its pending seller shipment. bid.SaleID may be
// preassigned.
func (s *BidService) openSale(ctx context.Context, r repositories.TxRepos, bid *models.SaleBid, account *models.BankAccount) error {
	if bid.SaleID == "" {
		bid.SaleID = uuid.NewString()
	}
	bid.ID = uuid.NewString()
	sale := &models.Sale{
		Model:         models.Model{ID: bid.SaleID},
		SellerID:      bid.SellerID,
		ItemVariantID: bid.ItemVariantID,
		Price:         bid.Price,
		Status:        models.SalePendingShipment,
		SaleBidID:     bid.ID,
	}
	sale.SnapshotPayout(account)
	if err := r.Sales().Create(ctx, sale); err != nil {
		return err
	}
	if err := r.Bids().CreateSaleBid(ctx, bid); err != nil {
		return err
	}
	return r.Shipments().CreateSellerShipment(ctx, &models.SellerShipment{
		SaleID: sale.ID,
		Status: models.ShipmentPending,
	})
}

func (s *BidService) notifyMatched(ctx context.Context, buyerID, sellerID, orderID, saleID string) {
	log.Printf("bid: matched order %s with sale %s", orderID, saleID)
	s.notifier.Notify(ctx, models.NotificationBidMatched, buyerID, orderID, saleID)
	s.notifier.Notify(ctx, models.NotificationBidMatched, sellerID, orderID, saleID)
}

// matchable rejects a counter-bid that can no longer be claimed before any row is written.
// The compare-and-set in the repository still decides races.
func matchable(entity, id string, status models.BidStatus) error {
	switch {
	case status == models.BidMatched:
		return errs.BidAlreadyMatched(entity, id)
	case !models.BidMachine.CanTransition(status, models.BidMatched):
		return errs.InvalidTransition(models.BidMachine.Name(), string(status), string(models.BidMatched))
	}
	return nil
}

func transitionOrderBid(ctx context.Context, r repositories.TxRepos, bid *models.OrderBid, to models.BidStatus) error {
	from := bid.Status
	if err := models.BidMachine.Apply(bid, to); err != nil {
		return err
	}
	if err := r.Bids().UpdateOrderBidStatus(ctx, bid.ID, from, to); err != nil {
		bid.Status = from
		return fmt.Errorf("order bid %s: %w", bid.ID, err)
	}
	return nil
}

func transitionSaleBid(ctx context.Context, r repositories.TxRepos, bid *models.SaleBid, to models.BidStatus) error {
	from := bid.Status
	if err := models.BidMachine.Apply(bid, to); err != nil {
		return err
	}
	if err := r.Bids().UpdateSaleBidStatus(ctx, bid.ID, from, to); err != nil {
		bid.Status = from
		return fmt.Errorf("sale bid %s: %w", bid.ID, err)
	}
	return nil
}
