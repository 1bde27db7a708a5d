package handlers

import (
	"fmt"
	"log"

	"resell/internal/errs"
	"resell/internal/models"
	"resell/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps an error code to its HTTP status.
func statusFor(err error) int {
	switch errs.CodeOf(err) {
	case errs.CodeNotFound:
		return fiber.StatusNotFound
	case errs.CodeInvalid:
		return fiber.StatusBadRequest
	case errs.CodeForbidden:
		return fiber.StatusForbidden
	case errs.CodeInvalidTransition, errs.CodeBidAlreadyMatched, errs.CodeBidLinked, errs.CodeConflict:
		return fiber.StatusConflict
	case errs.CodePaymentGateway, errs.CodeExternalTracking:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s %s: %s: %v", c.Method(), c.Path(), message, err)
	}
	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}
	if code := errs.CodeOf(err); code != "" {
		body["code"] = code
	}
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return badBody(c, err)
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// callerFrom builds the caller identity from the locals set by middleware.AuthRequired.
func callerFrom(c *fiber.Ctx) services.Caller {
	userID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)
	return services.Caller{UserID: userID, Admin: role == models.RoleAdmin}
}
