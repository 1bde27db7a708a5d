package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sourcegraph/conc"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resell/internal/config"
	"resell/internal/handlers"
	"resell/internal/models"
	"resell/internal/repositories"
	"resell/internal/services"
	"resell/internal/telemetry"
	"resell/pkg/carrier"
	"resell/pkg/payment"
	"resell/pkg/rabbitmq"
)

// publisher is what the services need from the message broker.
type publisher interface {
	services.EventPublisher
	services.NotificationPublisher
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// --- Database ---
	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	store := repositories.NewGormStore(db)
	seedProducts(ctx, store.Products())

	// --- Initialize RabbitMQ Client ---
	mqClient, err := rabbitmq.NewClient(ctx, rabbitmq.Config{URL: cfg.RabbitMQ.URL})
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
	}
	defer mqClient.Close() // Ensure the connection is closed on exit

	var tracker carrier.Tracker
	if cfg.Tracking.CarrierAPIURL != "" {
		tracker = carrier.NewHTTPTracker(cfg.Tracking.CarrierAPIURL, 10*time.Second)
	}

	// --- Initialize Services and Fiber App ---
	svc := buildServices(cfg, store, mqClient, payment.NewSandboxGateway(), tracker)
	app := newApp(svc)

	// --- Payment workers ---
	processing, err := mqClient.Consume(rabbitmq.PaymentQueue, "payment-worker")
	if err != nil {
		log.Fatalf("Failed to consume %s: %v", rabbitmq.PaymentQueue, err)
	}
	retries, err := mqClient.Consume(rabbitmq.PaymentRetryQueue, "payment-retry-worker")
	if err != nil {
		log.Fatalf("Failed to consume %s: %v", rabbitmq.PaymentRetryQueue, err)
	}
	worker := services.NewPaymentWorker(cfg.Payment.Workers,
		services.Chain(svc.Payments.Handle, services.WithLogging("payment"), services.WithRecover()),
		services.Chain(svc.Payments.HandleRetry, services.WithLogging("payment-retry"), services.WithRecover()),
	)

	var background conc.WaitGroup
	background.Go(func() {
		log.Printf("Starting %d payment partitions", cfg.Payment.Workers)
		worker.Run(ctx, processing, retries)
	})
	if tracker != nil {
		background.Go(func() { svc.Tracking.Run(ctx, cfg.Tracking.PollInterval) })
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	cancel()
	background.Wait()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTelemetry(flushCtx); err != nil {
		log.Printf("Error flushing telemetry: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// openDatabase opens the configured gorm dialect.
func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer; queue transactions instead of failing them.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// buildServices wires the domain services on top of the store and the broker.
func buildServices(cfg config.Config, store repositories.Store, pub publisher, gateway payment.Gateway, tracker carrier.Tracker) handlers.Services {
	notifier := services.NewNotifier(pub)
	warehouse := services.NewWarehouseService(store)
	sales := services.NewSaleService(store, warehouse)
	orders := services.NewOrderService(store, sales, warehouse, gateway)
	payments := services.NewPaymentService(store, orders, gateway, pub, notifier, cfg.Payment)

	return handlers.Services{
		Auth:      services.NewAuthService(store.Users(), cfg.JWTSecret),
		Products:  services.NewProductService(store.Products()),
		Accounts:  services.NewAccountService(store.Accounts()),
		Bids:      services.NewBidService(store, payments, notifier),
		Orders:    orders,
		Payments:  payments,
		Sales:     sales,
		Warehouse: warehouse,
		Tracking:  services.NewTrackingService(store, orders, sales, tracker, notifier, cfg.Tracking),
	}
}

// newApp builds the Fiber app with middleware, the health check and the API routes.
func newApp(svc handlers.Services) *fiber.App {
	app := fiber.New(handlers.FiberConfig())

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handlers.Mount(app, svc)
	return app
}

// seedProducts populates an empty catalog with a few tradable sneakers.
func seedProducts(ctx context.Context, repo repositories.ProductRepository) {
	existing, err := repo.GetAll(ctx)
	if err != nil {
		log.Printf("Error reading catalog: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}

	sizes := func(values ...string) []models.ItemVariant {
		out := make([]models.ItemVariant, 0, len(values))
		for _, v := range values {
			out = append(out, models.ItemVariant{Size: v})
		}
		return out
	}
	products := []models.Product{
		{Name: "Jordan 1 Retro High OG Chicago", Brand: "Nike", Variants: sizes("260", "270", "280")},
		{Name: "Dunk Low Panda", Brand: "Nike", Variants: sizes("250", "260", "270")},
		{Name: "Samba OG", Brand: "Adidas", Variants: sizes("240", "250", "260")},
	}
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
		} else {
			log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
		}
	}
}
