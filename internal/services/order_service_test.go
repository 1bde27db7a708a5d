package services_test

import (
	"errors"
	"testing"

	"resell/internal/config"
	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var singleLookupConfig = config.TrackingConfig{Concurrency: 1}

// recordCharge charges the gateway for order and stores the successful payment without
// advancing the order.
func recordCharge(t *testing.T, f *fixture, order *models.Order) {
	t.Helper()
	token, err := f.gateway.Authenticate(f.ctx)
	require.NoError(t, err)
	ref, err := f.gateway.Charge(f.ctx, token, cardPayment, order.TotalAmount)
	require.NoError(t, err)
	p := &models.Payment{OrderID: order.ID, Amount: order.TotalAmount, ExternalRef: ref}
	p.MarkSuccessful()
	require.NoError(t, f.store.Payments().Create(f.ctx, p))
}

// chargedOrder records a successful charge for a matched order and leaves it in
// PAYMENT_COMPLETED, the only status a refund can be requested from. Payment consumption
// moves on to PREPARING in the same transaction, so only an operator parks an order here.
func chargedOrder(t *testing.T, f *fixture) *models.OrderBid {
	t.Helper()
	saleBid := f.saleBid(t, 100)
	orderBid := f.instantPurchase(t, saleBid.ID, false)
	recordCharge(t, f, f.order(t, orderBid.OrderID))
	_, err := f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderPaymentCompleted)
	require.NoError(t, err)
	return orderBid
}

func TestOrderService_Refund(t *testing.T) {
	f := newFixture(t)
	orderBid := chargedOrder(t, f)
	require.Equal(t, 1, f.gateway.Charged())

	_, err := f.orders.CompleteRefund(f.ctx, services.AdminCaller, orderBid.OrderID)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition), "refund must be requested first")

	_, err = f.orders.RequestRefund(f.ctx, callerOf(f.seller), orderBid.OrderID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	order, err := f.orders.RequestRefund(f.ctx, callerOf(f.buyer), orderBid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRefundRequested, order.Status)

	_, err = f.orders.CompleteRefund(f.ctx, callerOf(f.buyer), orderBid.OrderID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	order, err = f.orders.CompleteRefund(f.ctx, services.AdminCaller, orderBid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRefunded, order.Status)
	assert.Equal(t, 0, f.gateway.Charged())
	assert.Equal(t, models.BidCancelled, f.orderBid(t, orderBid.ID).Status)

	paid, err := f.store.Payments().FindSuccessful(f.ctx, orderBid.OrderID)
	require.NoError(t, err)
	require.NotNil(t, paid)
	assert.Equal(t, models.PaymentRefunded, paid.Status)

	assert.Equal(t, models.SaleCancelled, f.sale(t, orderBid.SaleID).Status)
	saleBid, err := f.store.Bids().GetSaleBidBySale(f.ctx, orderBid.SaleID)
	require.NoError(t, err)
	assert.Equal(t, models.BidCancelled, saleBid.Status)
	_, err = f.sales.CancelSale(f.ctx, callerOf(f.seller), orderBid.SaleID)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition), "the refund already closed the sale")
}

func TestOrderService_AdminRefundCancelsCharge(t *testing.T) {
	f := newFixture(t)
	orderBid := chargedOrder(t, f)
	_, err := f.orders.RequestRefund(f.ctx, callerOf(f.buyer), orderBid.OrderID)
	require.NoError(t, err)

	order, err := f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderRefunded)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRefunded, order.Status)
	assert.Equal(t, 0, f.gateway.Charged())
	assert.Equal(t, models.BidCancelled, f.orderBid(t, orderBid.ID).Status)
	assert.Equal(t, models.SaleCancelled, f.sale(t, orderBid.SaleID).Status)

	paid, err := f.store.Payments().FindSuccessful(f.ctx, orderBid.OrderID)
	require.NoError(t, err)
	require.NotNil(t, paid)
	assert.Equal(t, models.PaymentRefunded, paid.Status)
}

func TestOrderService_AdminCompleteRunsFulfillment(t *testing.T) {
	f := newFixture(t)
	orderBid, saleBid := shipped(t, f)

	order, err := f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, order.Status)
	assert.Equal(t, models.SaleSold, f.sale(t, saleBid.SaleID).Status)
	assert.Equal(t, models.BidCompleted, f.orderBid(t, orderBid.ID).Status)
	assert.Equal(t, models.BidCompleted, f.saleBidByID(t, saleBid.ID).Status)

	sh, err := f.store.Shipments().GetOrderShipmentByOrder(f.ctx, orderBid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentDelivered, sh.Status)

	// The carrier catching up later must not trip over the finished order.
	f.tracker.set("O-"+orderBid.OrderID, "배송완료")
	f.tracker.set("S-"+saleBid.SaleID, "배송완료")
	report, err := f.tracking.PollAndReconcile(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Failed)
}

func TestOrderService_NoRefundOncePreparing(t *testing.T) {
	f := newFixture(t)
	orderBid, _ := f.paidPurchase(t, false)

	_, err := f.orders.RequestRefund(f.ctx, callerOf(f.buyer), orderBid.OrderID)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.Equal(t, models.OrderPreparing, f.order(t, orderBid.OrderID).Status)
}

func TestOrderService_UpdateStatusFollowsTable(t *testing.T) {
	f := newFixture(t)
	saleBid := f.saleBid(t, 100)
	orderBid := f.instantPurchase(t, saleBid.ID, false)

	_, err := f.orders.UpdateStatus(f.ctx, callerOf(f.buyer), orderBid.OrderID, models.OrderPaymentCompleted)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	_, err = f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderShipmentStarted)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	assert.Equal(t, models.OrderPendingPayment, f.order(t, orderBid.OrderID).Status)

	_, err = f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderPaymentCompleted)
	assert.True(t, errors.Is(err, errs.ErrInvalid), "no payment is on record")
	_, err = f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderCompleted)
	assert.True(t, errors.Is(err, errs.ErrInvalid), "no payment is on record")
	assert.Equal(t, models.OrderPendingPayment, f.order(t, orderBid.OrderID).Status)

	recordCharge(t, f, f.order(t, orderBid.OrderID))
	order, err := f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderPaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentCompleted, order.Status)
}

func TestOrderService_AdminWarehouseOpensStorage(t *testing.T) {
	f := newFixture(t)
	orderBid := chargedOrder(t, f)

	order, err := f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderInWarehouse)
	require.NoError(t, err)
	assert.Equal(t, models.OrderInWarehouse, order.Status)

	storage, err := f.store.Warehouse().FindByOrder(f.ctx, orderBid.OrderID)
	require.NoError(t, err)
	require.NotNil(t, storage)
	assert.Equal(t, models.WarehouseAssociatedWithOrder, storage.Status)
}

func TestOrderService_Visibility(t *testing.T) {
	f := newFixture(t)
	saleBid := f.saleBid(t, 100)
	orderBid := f.instantPurchase(t, saleBid.ID, false)

	_, err := f.orders.GetOrder(f.ctx, callerOf(f.seller), orderBid.OrderID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))
	order, err := f.orders.GetOrder(f.ctx, callerOf(f.buyer), orderBid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orderBid.ID, order.OrderBidID)

	orders, err := f.orders.ListOrdersByBuyer(f.ctx, callerOf(f.buyer), f.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	_, err = f.orders.ListOrdersByBuyer(f.ctx, callerOf(f.seller), f.buyer.ID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))
}

func TestOrderService_WarehouseFlow(t *testing.T) {
	f := newFixture(t)
	orderBid, saleBid := f.paidPurchase(t, true)

	_, err := f.tracking.AssignSellerTracking(f.ctx, callerOf(f.seller), saleBid.SaleID, services.AssignTrackingInput{
		Carrier: "CJ", TrackingNumber: "S-1",
	})
	require.NoError(t, err)
	f.tracker.set("S-1", "배송완료")
	_, err = f.tracking.PollAndReconcile(f.ctx)
	require.NoError(t, err)

	storage, err := f.store.Warehouse().FindByOrder(f.ctx, orderBid.OrderID)
	require.NoError(t, err)
	require.NotNil(t, storage)
	assert.Equal(t, models.WarehouseInStorage, storage.Status)

	order, err := f.orders.ConfirmWarehouseReceipt(f.ctx, services.AdminCaller, orderBid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, order.Status)
	assert.Equal(t, models.SaleSold, f.sale(t, saleBid.SaleID).Status)
	assert.Equal(t, models.BidCompleted, f.orderBid(t, orderBid.ID).Status)
	assert.Equal(t, models.BidCompleted, f.saleBidByID(t, saleBid.ID).Status)

	storage, err = f.warehouse.GetStorage(f.ctx, callerOf(f.buyer), storage.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WarehouseSold, storage.Status)
	_, err = f.warehouse.GetStorage(f.ctx, callerOf(f.seller), storage.ID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	_, err = f.orders.ConfirmWarehouseReceipt(f.ctx, services.AdminCaller, orderBid.OrderID)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
}

func TestSaleService_SellerStorage(t *testing.T) {
	f := newFixture(t)
	orderBid, saleBid := f.paidPurchase(t, false)

	_, err := f.sales.StoreInWarehouse(f.ctx, callerOf(f.buyer), saleBid.SaleID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))
	storage, err := f.sales.StoreInWarehouse(f.ctx, callerOf(f.seller), saleBid.SaleID)
	require.NoError(t, err)
	assert.Equal(t, models.WarehouseAssociatedWithSale, storage.Status)

	_, err = f.tracking.AssignSellerTracking(f.ctx, callerOf(f.seller), saleBid.SaleID, services.AssignTrackingInput{
		Carrier: "CJ", TrackingNumber: "S-2",
	})
	require.NoError(t, err)
	f.tracker.set("S-2", "배송완료")
	_, err = f.tracking.PollAndReconcile(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, models.SaleInStorage, f.sale(t, saleBid.SaleID).Status)
	stored, err := f.store.Warehouse().FindBySale(f.ctx, saleBid.SaleID)
	require.NoError(t, err)
	assert.Equal(t, models.WarehouseInStorage, stored.Status)

	// The buyer's parcel then leaves the warehouse and is delivered.
	_, err = f.tracking.AssignOrderTracking(f.ctx, services.AdminCaller, orderBid.OrderID, services.AssignTrackingInput{
		Carrier: "CJ", TrackingNumber: "O-2",
	})
	require.NoError(t, err)
	f.tracker.set("O-2", "배송완료")
	_, err = f.tracking.PollAndReconcile(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, models.SaleSold, f.sale(t, saleBid.SaleID).Status)
	stored, err = f.store.Warehouse().FindBySale(f.ctx, saleBid.SaleID)
	require.NoError(t, err)
	assert.Equal(t, models.WarehouseSold, stored.Status)
}

func TestSaleService_CancelSale(t *testing.T) {
	f := newFixture(t)
	listing := f.saleBid(t, 100)

	_, err := f.sales.CancelSale(f.ctx, callerOf(f.buyer), listing.SaleID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	sale, err := f.sales.CancelSale(f.ctx, callerOf(f.seller), listing.SaleID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleCancelled, sale.Status)
	assert.Equal(t, models.BidCancelled, f.saleBidByID(t, listing.ID).Status)

	_, saleBid := f.paidPurchase(t, false)
	_, err = f.sales.CancelSale(f.ctx, callerOf(f.seller), saleBid.SaleID)
	assert.True(t, errors.Is(err, errs.ErrBidLinked))

	_, err = f.sales.UpdateStatus(f.ctx, services.AdminCaller, saleBid.SaleID, models.SaleCancelled)
	assert.True(t, errors.Is(err, errs.ErrBidLinked), "operators cancel through the same checks")
	_, err = f.sales.UpdateStatus(f.ctx, services.AdminCaller, saleBid.SaleID, models.SaleSold)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))

	sales, err := f.sales.ListSalesBySeller(f.ctx, callerOf(f.seller), f.seller.ID)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}

func TestSaleService_AdminSoldNeedsOrder(t *testing.T) {
	f := newFixture(t)
	orderBid, saleBid := shipped(t, f)

	_, err := f.sales.UpdateStatus(f.ctx, services.AdminCaller, saleBid.SaleID, models.SaleSold)
	assert.True(t, errors.Is(err, errs.ErrInvalid))
	assert.Equal(t, models.SaleInTransit, f.sale(t, saleBid.SaleID).Status)

	_, err = f.orders.UpdateStatus(f.ctx, services.AdminCaller, orderBid.OrderID, models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.SaleSold, f.sale(t, saleBid.SaleID).Status)
}
