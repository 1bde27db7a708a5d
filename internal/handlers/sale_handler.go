package handlers

import (
	"resell/internal/models"
	"resell/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SaleHandler handles HTTP requests for sales and warehouse storage.
type SaleHandler struct {
	service   *services.SaleService
	warehouse *services.WarehouseService
}

// NewSaleHandler creates a new SaleHandler.
func NewSaleHandler(service *services.SaleService, warehouse *services.WarehouseService) *SaleHandler {
	return &SaleHandler{
		service:   service,
		warehouse: warehouse,
	}
}

// RegisterRoutes registers the sale routes. admin must already be guarded by AdminOnly.
func (h *SaleHandler) RegisterRoutes(router, admin fiber.Router) {
	saleRoutes := router.Group("/sales")
	saleRoutes.Get("/", h.HandleGetSales)
	saleRoutes.Get("/:id", h.HandleGetSaleByID)
	saleRoutes.Post("/:id/cancel", h.HandleCancelSale)
	saleRoutes.Post("/:id/warehouse", h.HandleStoreInWarehouse)

	router.Get("/warehouse/:id", h.HandleGetStorage)

	admin.Patch("/sales/:id/status", h.HandleUpdateSaleStatus)
}

// HandleGetSales lists the caller's sales.
func (h *SaleHandler) HandleGetSales(c *fiber.Ctx) error {
	caller := callerFrom(c)
	sales, err := h.service.ListSalesBySeller(c.UserContext(), caller, caller.UserID)
	if err != nil {
		return respondError(c, "Could not retrieve sales", err)
	}
	return c.JSON(sales)
}

// HandleGetSaleByID retrieves a single sale by its ID.
func (h *SaleHandler) HandleGetSaleByID(c *fiber.Ctx) error {
	sale, err := h.service.GetSale(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve sale", err)
	}
	return c.JSON(sale)
}

// HandleCancelSale cancels an unmatched sale.
func (h *SaleHandler) HandleCancelSale(c *fiber.Ctx) error {
	sale, err := h.service.CancelSale(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not cancel sale", err)
	}
	return c.JSON(sale)
}

// HandleStoreInWarehouse opens a seller-side storage record for the sale.
func (h *SaleHandler) HandleStoreInWarehouse(c *fiber.Ctx) error {
	storage, err := h.service.StoreInWarehouse(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not store sale in warehouse", err)
	}
	return c.Status(fiber.StatusCreated).JSON(storage)
}

// HandleGetStorage retrieves a warehouse storage record.
func (h *SaleHandler) HandleGetStorage(c *fiber.Ctx) error {
	storage, err := h.warehouse.GetStorage(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve storage", err)
	}
	return c.JSON(storage)
}

// HandleUpdateSaleStatus moves a sale along its transition table.
func (h *SaleHandler) HandleUpdateSaleStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	sale, err := h.service.UpdateStatus(c.UserContext(), callerFrom(c), c.Params("id"), models.SaleStatus(req.Status))
	if err != nil {
		return respondError(c, "Could not update sale status", err)
	}
	return c.JSON(sale)
}
