package models_test

import (
	"errors"
	"testing"

	"resell/internal/errs"
	"resell/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestOrderMachine_FullGrid(t *testing.T) {
	declared := map[models.OrderStatus][]models.OrderStatus{
		models.OrderPendingPayment:   {models.OrderPaymentCompleted, models.OrderCompleted, models.OrderInWarehouse},
		models.OrderPaymentCompleted: {models.OrderPreparing, models.OrderRefundRequested, models.OrderInWarehouse},
		models.OrderPreparing:        {models.OrderInWarehouse, models.OrderShipmentStarted},
		models.OrderInWarehouse:      {models.OrderShipmentStarted, models.OrderCompleted},
		models.OrderShipmentStarted:  {models.OrderInTransit},
		models.OrderInTransit:        {models.OrderCompleted},
		models.OrderRefundRequested:  {models.OrderRefunded},
	}
	all := []models.OrderStatus{
		models.OrderPendingPayment, models.OrderPaymentCompleted, models.OrderPreparing,
		models.OrderInWarehouse, models.OrderShipmentStarted, models.OrderInTransit,
		models.OrderRefundRequested, models.OrderRefunded, models.OrderCompleted,
	}
	assert.ElementsMatch(t, all, models.OrderMachine.States())

	for _, from := range all {
		allowed := make(map[models.OrderStatus]bool)
		for _, to := range declared[from] {
			allowed[to] = true
		}
		for _, to := range all {
			_, err := models.OrderMachine.Transition(from, to)
			if allowed[to] {
				assert.NoError(t, err, "%s -> %s should be allowed", from, to)
				continue
			}
			assert.True(t, errors.Is(err, errs.ErrInvalidTransition), "%s -> %s should be rejected", from, to)
		}
	}

	assert.True(t, models.OrderMachine.IsTerminal(models.OrderCompleted))
	assert.True(t, models.OrderMachine.IsTerminal(models.OrderRefunded))
}

func TestBidMachine_TerminalStatesNeverMatch(t *testing.T) {
	for _, s := range []models.BidStatus{models.BidCancelled, models.BidCompleted} {
		assert.True(t, models.BidMachine.IsTerminal(s))
		assert.False(t, models.BidMachine.CanTransition(s, models.BidMatched))
	}
	assert.True(t, models.BidMachine.CanTransition(models.BidPending, models.BidMatched))
}

func TestShipmentMachine_Monotonic(t *testing.T) {
	m := models.ShipmentMachine
	assert.True(t, m.CanTransition(models.ShipmentInTransit, models.ShipmentDelivered))
	assert.True(t, m.CanTransition(models.ShipmentInTransit, models.ShipmentOutForDelivery))
	assert.False(t, m.CanTransition(models.ShipmentOutForDelivery, models.ShipmentInTransit))
	assert.False(t, m.CanTransition(models.ShipmentPending, models.ShipmentDelivered))
	assert.True(t, m.IsTerminal(models.ShipmentDelivered))
}

func TestSaleAndWarehouseMachines(t *testing.T) {
	assert.True(t, models.SaleMachine.CanTransition(models.SaleInTransit, models.SaleSold))
	assert.False(t, models.SaleMachine.CanTransition(models.SaleSold, models.SaleCancelled))
	assert.True(t, models.WarehouseMachine.CanTransition(models.WarehouseAssociatedWithOrder, models.WarehouseSold))
	assert.False(t, models.WarehouseMachine.CanTransition(models.WarehouseSold, models.WarehouseInStorage))
}

func TestPayment_MarkSuccessful(t *testing.T) {
	var p models.Payment
	assert.Nil(t, p.SuccessKey)
	p.MarkSuccessful()
	assert.True(t, p.Success)
	assert.Equal(t, models.PaymentPaid, p.Status)
	if assert.NotNil(t, p.SuccessKey) {
		assert.Equal(t, "success", *p.SuccessKey)
	}
}
