package handlers

import (
	"resell/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ShipmentHandler handles carrier tracking assignment and reconciliation.
type ShipmentHandler struct {
	service *services.TrackingService
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(service *services.TrackingService) *ShipmentHandler {
	return &ShipmentHandler{service: service}
}

// RegisterRoutes registers the shipment routes. admin must already be guarded by AdminOnly.
func (h *ShipmentHandler) RegisterRoutes(router, admin fiber.Router) {
	router.Post("/shipments/sales/:id/tracking", h.HandleAssignSellerTracking)

	admin.Post("/shipments/orders/:id/tracking", h.HandleAssignOrderTracking)
	admin.Post("/tracking/poll", h.HandlePoll)
}

// HandleAssignOrderTracking hands an order's parcel to a carrier.
func (h *ShipmentHandler) HandleAssignOrderTracking(c *fiber.Ctx) error {
	var in services.AssignTrackingInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}

	shipment, err := h.service.AssignOrderTracking(c.UserContext(), callerFrom(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, "Could not assign tracking", err)
	}
	return c.JSON(shipment)
}

// HandleAssignSellerTracking records the seller's parcel to the warehouse.
func (h *ShipmentHandler) HandleAssignSellerTracking(c *fiber.Ctx) error {
	var in services.AssignTrackingInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}

	shipment, err := h.service.AssignSellerTracking(c.UserContext(), callerFrom(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, "Could not assign tracking", err)
	}
	return c.JSON(shipment)
}

// HandlePoll runs one reconciliation pass against the carrier.
func (h *ShipmentHandler) HandlePoll(c *fiber.Ctx) error {
	report, err := h.service.PollAndReconcile(c.UserContext())
	if err != nil {
		return respondError(c, "Tracking poll failed", err)
	}
	return c.JSON(report)
}
