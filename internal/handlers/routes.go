package handlers

import (
	"resell/internal/middleware"
	"resell/internal/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Auth      *services.AuthService
	Products  *services.ProductService
	Accounts  *services.AccountService
	Bids      *services.BidService
	Orders    *services.OrderService
	Payments  *services.PaymentService
	Sales     *services.SaleService
	Warehouse *services.WarehouseService
	Tracking  *services.TrackingService
}

// FiberConfig returns the app configuration shared by the server and its tests.
func FiberConfig() fiber.Config {
	return fiber.Config{
		AppName:     "resell",
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	}
}

// Mount registers every API route under /api/v1. Auth routes are public, everything
// else requires a token and /api/v1/admin additionally requires the admin role.
func Mount(app *fiber.App, svc Services) {
	apiV1 := app.Group("/api/v1")

	NewAuthHandler(svc.Auth).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(svc.Auth))
	admin := protected.Group("/admin", middleware.AdminOnly())

	NewProductHandler(svc.Products).RegisterRoutes(protected, admin)
	NewAccountHandler(svc.Accounts).RegisterRoutes(protected)
	NewBidHandler(svc.Bids).RegisterRoutes(protected, admin)
	NewOrderHandler(svc.Orders, svc.Payments).RegisterRoutes(protected, admin)
	NewSaleHandler(svc.Sales, svc.Warehouse).RegisterRoutes(protected, admin)
	NewShipmentHandler(svc.Tracking).RegisterRoutes(protected, admin)
}
