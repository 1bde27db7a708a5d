package handlers

import (
	"log"

	"resell/internal/errs"
	"resell/internal/services"

	"github.com/gofiber/fiber/v2"
)

// BidHandler handles HTTP requests for order and sale bids.
type BidHandler struct {
	service *services.BidService
}

// NewBidHandler creates a new BidHandler.
func NewBidHandler(service *services.BidService) *BidHandler {
	return &BidHandler{service: service}
}

// RegisterRoutes registers the bid routes. admin must already be guarded by AdminOnly.
func (h *BidHandler) RegisterRoutes(router, admin fiber.Router) {
	bidRoutes := router.Group("/bids")
	bidRoutes.Post("/orders", h.HandleCreateOrderBid)
	bidRoutes.Post("/orders/instant", h.HandleCreateInstantOrderBid)
	bidRoutes.Get("/orders/:id", h.HandleGetOrderBid)
	bidRoutes.Delete("/orders/:id", h.HandleDeleteOrderBid)
	bidRoutes.Post("/sales", h.HandleCreateSaleBid)
	bidRoutes.Post("/sales/instant", h.HandleCreateInstantSaleBid)
	bidRoutes.Get("/sales/:id", h.HandleGetSaleBid)
	bidRoutes.Delete("/sales/:id", h.HandleDeleteSaleBid)
	bidRoutes.Get("/variants/:id/orders", h.HandleListPendingOrderBids)
	bidRoutes.Get("/variants/:id/sales", h.HandleListPendingSaleBids)

	admin.Post("/bids/match", h.HandleMatch)
}

// HandleCreateOrderBid opens a buyer bid with its pending order.
func (h *BidHandler) HandleCreateOrderBid(c *fiber.Ctx) error {
	var in services.CreateOrderBidInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}

	bid, err := h.service.CreateOrderBid(c.UserContext(), callerFrom(c), in)
	if err != nil {
		return respondError(c, "Could not create order bid", err)
	}
	return c.Status(fiber.StatusCreated).JSON(bid)
}

// HandleCreateInstantOrderBid buys an existing sale bid and enqueues its payment.
func (h *BidHandler) HandleCreateInstantOrderBid(c *fiber.Ctx) error {
	var in services.CreateInstantOrderBidInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}

	bid, err := h.service.CreateInstantOrderBid(c.UserContext(), callerFrom(c), in)
	if err != nil && bid == nil {
		return respondError(c, "Could not create instant order bid", err)
	}
	if err != nil {
		// The match is committed; the buyer resubmits payment through the order.
		log.Printf("Instant order bid %s matched but payment was not enqueued: %v", bid.ID, err)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Bid matched; payment could not be enqueued, retry via the order",
			"bid":     bid,
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(bid)
}

// HandleCreateSaleBid opens a seller bid with its pending sale.
func (h *BidHandler) HandleCreateSaleBid(c *fiber.Ctx) error {
	var in services.CreateSaleBidInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}

	bid, err := h.service.CreateSaleBid(c.UserContext(), callerFrom(c), in)
	if err != nil {
		return respondError(c, "Could not create sale bid", err)
	}
	return c.Status(fiber.StatusCreated).JSON(bid)
}

// HandleCreateInstantSaleBid sells into an existing order bid.
func (h *BidHandler) HandleCreateInstantSaleBid(c *fiber.Ctx) error {
	var in services.CreateInstantSaleBidInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}

	bid, err := h.service.CreateInstantSaleBid(c.UserContext(), callerFrom(c), in)
	if err != nil {
		return respondError(c, "Could not create instant sale bid", err)
	}
	return c.Status(fiber.StatusCreated).JSON(bid)
}

// HandleGetOrderBid retrieves an order bid.
func (h *BidHandler) HandleGetOrderBid(c *fiber.Ctx) error {
	bid, err := h.service.GetOrderBid(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve order bid", err)
	}
	return c.JSON(bid)
}

// HandleGetSaleBid retrieves a sale bid.
func (h *BidHandler) HandleGetSaleBid(c *fiber.Ctx) error {
	bid, err := h.service.GetSaleBid(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve sale bid", err)
	}
	return c.JSON(bid)
}

// HandleDeleteOrderBid withdraws an unmatched order bid.
func (h *BidHandler) HandleDeleteOrderBid(c *fiber.Ctx) error {
	if err := h.service.DeleteOrderBid(c.UserContext(), callerFrom(c), c.Params("id")); err != nil {
		return respondError(c, "Could not delete order bid", err)
	}
	return c.JSON(fiber.Map{"message": "Order bid deleted successfully"})
}

// HandleDeleteSaleBid withdraws an unmatched sale bid.
func (h *BidHandler) HandleDeleteSaleBid(c *fiber.Ctx) error {
	if err := h.service.DeleteSaleBid(c.UserContext(), callerFrom(c), c.Params("id")); err != nil {
		return respondError(c, "Could not delete sale bid", err)
	}
	return c.JSON(fiber.Map{"message": "Sale bid deleted successfully"})
}

// HandleListPendingOrderBids lists the open buy side of a variant.
func (h *BidHandler) HandleListPendingOrderBids(c *fiber.Ctx) error {
	bids, err := h.service.ListPendingOrderBids(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve order bids", err)
	}
	return c.JSON(bids)
}

// HandleListPendingSaleBids lists the open sell side of a variant.
func (h *BidHandler) HandleListPendingSaleBids(c *fiber.Ctx) error {
	bids, err := h.service.ListPendingSaleBids(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve sale bids", err)
	}
	return c.JSON(bids)
}

// MatchRequest pairs an order bid with a sale bid.
type MatchRequest struct {
	OrderBidID string `json:"order_bid_id"`
	SaleBidID  string `json:"sale_bid_id"`
}

// HandleMatch pairs two standing bids.
func (h *BidHandler) HandleMatch(c *fiber.Ctx) error {
	var req MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if req.OrderBidID == "" || req.SaleBidID == "" {
		return respondError(c, "Could not match bids", errs.Invalid("order_bid_id and sale_bid_id are required"))
	}

	if err := h.service.MatchOrderBid(c.UserContext(), callerFrom(c), req.OrderBidID, req.SaleBidID); err != nil {
		return respondError(c, "Could not match bids", err)
	}
	return c.JSON(fiber.Map{"message": "Bids matched successfully"})
}
