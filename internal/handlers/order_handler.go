package handlers

import (
	"resell/internal/models"
	"resell/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	payments *services.PaymentService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, payments *services.PaymentService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		payments: payments,
	}
}

// RegisterRoutes registers the order routes. admin must already be guarded by AdminOnly.
func (h *OrderHandler) RegisterRoutes(router, admin fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/payment", h.HandleRequestPayment)
	orderRoutes.Post("/:id/refund", h.HandleRequestRefund)

	adminRoutes := admin.Group("/orders")
	adminRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
	adminRoutes.Post("/:id/refund/complete", h.HandleCompleteRefund)
	adminRoutes.Post("/:id/warehouse/confirm", h.HandleConfirmWarehouse)
}

// HandleGetOrders lists the caller's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	caller := callerFrom(c)
	orders, err := h.service.ListOrdersByBuyer(c.UserContext(), caller, caller.UserID)
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleRequestPayment enqueues a payment for a matched order. Processing is asynchronous.
func (h *OrderHandler) HandleRequestPayment(c *fiber.Ctx) error {
	var req models.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	evt, err := h.payments.RequestPayment(c.UserContext(), callerFrom(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, "Payment request failed", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":  "Payment accepted for processing",
		"event_id": evt.EventID,
		"order_id": evt.OrderID,
	})
}

// HandleRequestRefund asks for a refund of a paid order.
func (h *OrderHandler) HandleRequestRefund(c *fiber.Ctx) error {
	order, err := h.service.RequestRefund(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Refund request failed", err)
	}
	return c.JSON(order)
}

// UpdateStatusRequest carries a target status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus moves an order along its transition table.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	order, err := h.service.UpdateStatus(c.UserContext(), callerFrom(c), c.Params("id"), models.OrderStatus(req.Status))
	if err != nil {
		return respondError(c, "Could not update order status", err)
	}
	return c.JSON(order)
}

// HandleCompleteRefund cancels the charge and marks the order refunded.
func (h *OrderHandler) HandleCompleteRefund(c *fiber.Ctx) error {
	order, err := h.service.CompleteRefund(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Refund failed", err)
	}
	return c.JSON(order)
}

// HandleConfirmWarehouse completes an order kept in the warehouse.
func (h *OrderHandler) HandleConfirmWarehouse(c *fiber.Ctx) error {
	order, err := h.service.ConfirmWarehouseReceipt(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not confirm warehouse receipt", err)
	}
	return c.JSON(order)
}
