package handlers

import (
	"resell/internal/models"
	"resell/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles addresses and payout accounts of the caller.
type AccountHandler struct {
	service *services.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service *services.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// RegisterRoutes registers the account routes.
func (h *AccountHandler) RegisterRoutes(router fiber.Router) {
	accountRoutes := router.Group("/account")
	accountRoutes.Get("/addresses", h.HandleListAddresses)
	accountRoutes.Post("/addresses", h.HandleAddAddress)
	accountRoutes.Get("/bank", h.HandleGetBankAccount)
	accountRoutes.Post("/bank", h.HandleRegisterBankAccount)
}

// HandleAddAddress registers a delivery address.
func (h *AccountHandler) HandleAddAddress(c *fiber.Ctx) error {
	var addr models.Address
	if err := c.BodyParser(&addr); err != nil {
		return badBody(c, err)
	}

	if err := h.service.AddAddress(c.UserContext(), callerFrom(c), &addr); err != nil {
		return respondError(c, "Could not add address", err)
	}
	return c.Status(fiber.StatusCreated).JSON(addr)
}

// HandleListAddresses lists the caller's addresses.
func (h *AccountHandler) HandleListAddresses(c *fiber.Ctx) error {
	addresses, err := h.service.ListAddresses(c.UserContext(), callerFrom(c))
	if err != nil {
		return respondError(c, "Could not retrieve addresses", err)
	}
	return c.JSON(addresses)
}

// HandleRegisterBankAccount registers a payout account.
func (h *AccountHandler) HandleRegisterBankAccount(c *fiber.Ctx) error {
	var acc models.BankAccount
	if err := c.BodyParser(&acc); err != nil {
		return badBody(c, err)
	}

	if err := h.service.RegisterBankAccount(c.UserContext(), callerFrom(c), &acc); err != nil {
		return respondError(c, "Could not register bank account", err)
	}
	return c.Status(fiber.StatusCreated).JSON(acc)
}

// HandleGetBankAccount returns the caller's current payout account.
func (h *AccountHandler) HandleGetBankAccount(c *fiber.Ctx) error {
	acc, err := h.service.GetBankAccount(c.UserContext(), callerFrom(c))
	if err != nil {
		return respondError(c, "Could not retrieve bank account", err)
	}
	return c.JSON(acc)
}
