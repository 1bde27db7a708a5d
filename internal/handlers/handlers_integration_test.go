package handlers_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"resell/internal/config"
	"resell/internal/handlers"
	"resell/internal/models"
	"resell/internal/repositories"
	"resell/internal/repositories/repotest"
	"resell/internal/services"
	"resell/pkg/payment"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type capturePublisher struct {
	mu       sync.Mutex
	payments []models.PaymentEvent
}

func (p *capturePublisher) PublishPayment(ctx context.Context, evt *models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, *evt)
	return nil
}

func (p *capturePublisher) PublishPaymentRetry(ctx context.Context, evt *models.PaymentEvent, delay time.Duration) error {
	return nil
}

func (p *capturePublisher) PublishNotification(ctx context.Context, n models.Notification) error {
	return nil
}

type testApp struct {
	app       *fiber.App
	db        *gorm.DB
	auth      *services.AuthService
	payments  *services.PaymentService
	publisher *capturePublisher
}

// setupApp builds the full API on a private in-memory SQLite database.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	db := repotest.Open(t)
	store := repositories.NewGormStore(db)
	gateway := payment.NewSandboxGateway()
	publisher := &capturePublisher{}
	notifier := services.NewNotifier(publisher)

	warehouse := services.NewWarehouseService(store)
	sales := services.NewSaleService(store, warehouse)
	orders := services.NewOrderService(store, sales, warehouse, gateway)
	payments := services.NewPaymentService(store, orders, gateway, publisher, notifier, config.PaymentConfig{
		Workers:        1,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  time.Second,
	})
	authService := services.NewAuthService(store.Users(), "test_jwt_secret")

	app := fiber.New(handlers.FiberConfig())
	handlers.Mount(app, handlers.Services{
		Auth:      authService,
		Products:  services.NewProductService(store.Products()),
		Accounts:  services.NewAccountService(store.Accounts()),
		Bids:      services.NewBidService(store, payments, notifier),
		Orders:    orders,
		Payments:  payments,
		Sales:     sales,
		Warehouse: warehouse,
		Tracking:  services.NewTrackingService(store, orders, sales, nil, notifier, config.TrackingConfig{Concurrency: 1}),
	})
	return &testApp{app: app, db: db, auth: authService, payments: payments, publisher: publisher}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	defer resp.Body.Close()
	if !assert.Equal(t, status, resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		t.Logf("response body: %s", body)
	}
}

// login registers username and returns a bearer token.
func (a *testApp) login(t *testing.T, username string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	expectStatus(t, resp, http.StatusCreated)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	decode(t, resp, &loginResp)
	require.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

// loginAdmin registers username, promotes it and returns an admin token.
func (a *testApp) loginAdmin(t *testing.T, username string) string {
	t.Helper()
	a.login(t, username)
	require.NoError(t, a.db.Model(&models.User{}).Where("username = ?", username).
		Update("role", models.RoleAdmin).Error)

	resp := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	var loginResp map[string]string
	decode(t, resp, &loginResp)
	return loginResp["token"]
}

func (a *testApp) createProduct(t *testing.T, adminToken string) models.Product {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/v1/admin/products", adminToken, map[string]any{
		"name":     "Jordan 1 Chicago",
		"brand":    "Nike",
		"variants": []map[string]string{{"size": "270"}, {"size": "280"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var product models.Product
	decode(t, resp, &product)
	require.Len(t, product.Variants, 2)
	return product
}

func TestAuthRegisterAndLogin(t *testing.T) {
	a := setupApp(t)

	userToRegister := map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	}
	resp := a.do(t, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var registerResp map[string]any
	decode(t, resp, &registerResp)
	assert.Equal(t, "User registered successfully", registerResp["message"])

	// Duplicate registration (username)
	resp = a.do(t, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	expectStatus(t, resp, http.StatusConflict)

	// Invalid payload
	resp = a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "x"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	decode(t, resp, &loginResp)
	assert.NotEmpty(t, loginResp["token"])

	claims, err := a.auth.ValidateToken(loginResp["token"])
	assert.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])
	assert.Equal(t, models.RoleUser, claims["role"])
	assert.Contains(t, claims, "user_id")

	resp = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "testuser",
		"password": "wrong-password",
	})
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestProductEndpointsWithAuth(t *testing.T) {
	a := setupApp(t)
	adminToken := a.loginAdmin(t, "catalog-admin")
	userToken := a.login(t, "shopper")

	created := a.createProduct(t, adminToken)
	assert.NotEmpty(t, created.ID)

	// Regular users read the catalog but cannot change it
	resp := a.do(t, http.MethodGet, "/api/v1/products", userToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	decode(t, resp, &products)
	assert.Len(t, products, 1)

	resp = a.do(t, http.MethodPost, "/api/v1/admin/products", userToken, map[string]any{
		"name": "Forbidden", "brand": "Nike",
	})
	expectStatus(t, resp, http.StatusForbidden)

	resp = a.do(t, http.MethodGet, "/api/v1/products/"+created.ID, userToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Product
	decode(t, resp, &fetched)
	assert.Equal(t, created.ID, fetched.ID)

	resp = a.do(t, http.MethodPut, "/api/v1/admin/products/"+created.ID, adminToken, map[string]any{
		"name":  "Jordan 1 Chicago Reimagined",
		"brand": "Nike",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Product
	decode(t, resp, &updated)
	assert.Equal(t, "Jordan 1 Chicago Reimagined", updated.Name)
	assert.Len(t, updated.Variants, 2)

	resp = a.do(t, http.MethodDelete, "/api/v1/admin/products/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var deleteResp map[string]string
	decode(t, resp, &deleteResp)
	assert.Contains(t, deleteResp["message"], "deleted successfully")

	resp = a.do(t, http.MethodGet, "/api/v1/products/"+created.ID, userToken, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestProductEndpointsWithoutAuth(t *testing.T) {
	a := setupApp(t)

	resp := a.do(t, http.MethodGet, "/api/v1/products", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = a.do(t, http.MethodPost, "/api/v1/admin/products", "", map[string]any{"name": "Unauthorized"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = a.do(t, http.MethodGet, "/api/v1/products", "not-a-jwt", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestInstantPurchaseOverHTTP(t *testing.T) {
	a := setupApp(t)
	adminToken := a.loginAdmin(t, "ops")
	sellerToken := a.login(t, "seller")
	buyerToken := a.login(t, "buyer")
	rivalToken := a.login(t, "rival")
	variantID := a.createProduct(t, adminToken).Variants[0].ID

	// A sale bid needs no bank account, but an instant sale does
	resp := a.do(t, http.MethodPost, "/api/v1/account/bank", sellerToken, map[string]string{
		"bank_name": "KB", "account_number": "123-456", "account_holder": "Seller",
	})
	expectStatus(t, resp, http.StatusCreated)

	resp = a.do(t, http.MethodPost, "/api/v1/bids/sales", sellerToken, map[string]any{
		"item_variant_id": variantID,
		"price":           "150000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saleBid models.SaleBid
	decode(t, resp, &saleBid)
	require.NotEmpty(t, saleBid.SaleID)

	resp = a.do(t, http.MethodGet, "/api/v1/bids/variants/"+variantID+"/sales", buyerToken, nil)
	var pending []models.SaleBid
	decode(t, resp, &pending)
	require.Len(t, pending, 1)

	resp = a.do(t, http.MethodPost, "/api/v1/account/addresses", buyerToken, map[string]string{
		"recipient_name": "Kim", "phone": "010-0000-0000", "zip_code": "04524", "line1": "1 Sejong-daero",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var address models.Address
	decode(t, resp, &address)

	purchase := map[string]any{
		"sale_bid_id": saleBid.ID,
		"address_id":  address.ID,
		"payment_request": map[string]string{
			"method":    models.PaymentMethodCard,
			"cardToken": "tok_visa",
		},
	}
	resp = a.do(t, http.MethodPost, "/api/v1/bids/orders/instant", buyerToken, purchase)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var orderBid models.OrderBid
	decode(t, resp, &orderBid)
	assert.Equal(t, models.BidMatched, orderBid.Status)
	assert.Equal(t, saleBid.SaleID, orderBid.SaleID)
	require.NotEmpty(t, orderBid.OrderID)

	// The sale bid is gone for everyone else
	rivalPurchase := map[string]any{
		"sale_bid_id":      saleBid.ID,
		"warehouse_option": true,
		"payment_request":  purchase["payment_request"],
	}
	resp = a.do(t, http.MethodPost, "/api/v1/bids/orders/instant", rivalToken, rivalPurchase)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict map[string]any
	decode(t, resp, &conflict)
	assert.Equal(t, "bid_already_matched", conflict["code"])

	// A matched sale can no longer be cancelled by its seller
	resp = a.do(t, http.MethodPost, "/api/v1/sales/"+saleBid.SaleID+"/cancel", sellerToken, nil)
	expectStatus(t, resp, http.StatusConflict)

	// The payment was queued; drain it as the worker would
	require.Len(t, a.publisher.payments, 1)
	require.NoError(t, a.payments.Handle(context.Background(), &a.publisher.payments[0]))

	resp = a.do(t, http.MethodGet, "/api/v1/orders/"+orderBid.OrderID, buyerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var order models.Order
	decode(t, resp, &order)
	assert.Equal(t, models.OrderPreparing, order.Status)

	// Orders are private to their buyer
	resp = a.do(t, http.MethodGet, "/api/v1/orders/"+orderBid.OrderID, sellerToken, nil)
	expectStatus(t, resp, http.StatusForbidden)

	// Paying twice is rejected before anything is queued
	resp = a.do(t, http.MethodPost, "/api/v1/orders/"+orderBid.OrderID+"/payment", buyerToken, purchase["payment_request"])
	expectStatus(t, resp, http.StatusConflict)
	assert.Len(t, a.publisher.payments, 1)
}

func TestRequestPaymentForUnmatchedOrder(t *testing.T) {
	a := setupApp(t)
	adminToken := a.loginAdmin(t, "ops")
	buyerToken := a.login(t, "buyer")
	variantID := a.createProduct(t, adminToken).Variants[1].ID

	resp := a.do(t, http.MethodPost, "/api/v1/bids/orders", buyerToken, map[string]any{
		"item_variant_id":  variantID,
		"price":            "120000",
		"warehouse_option": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var orderBid models.OrderBid
	decode(t, resp, &orderBid)
	assert.Equal(t, models.BidPending, orderBid.Status)

	resp = a.do(t, http.MethodPost, "/api/v1/orders/"+orderBid.OrderID+"/payment", buyerToken, map[string]string{
		"method": models.PaymentMethodCard, "cardToken": "tok_visa",
	})
	expectStatus(t, resp, http.StatusBadRequest)
	assert.Empty(t, a.publisher.payments)

	resp = a.do(t, http.MethodDelete, "/api/v1/bids/orders/"+orderBid.ID, buyerToken, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = a.do(t, http.MethodGet, "/api/v1/orders/"+orderBid.OrderID, buyerToken, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	a := setupApp(t)
	adminToken := a.loginAdmin(t, "ops")
	userToken := a.login(t, "user")

	resp := a.do(t, http.MethodPost, "/api/v1/admin/tracking/poll", userToken, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = a.do(t, http.MethodPost, "/api/v1/admin/bids/match", userToken, map[string]string{
		"order_bid_id": "a", "sale_bid_id": "b",
	})
	expectStatus(t, resp, http.StatusForbidden)

	// No carrier is configured in this app
	resp = a.do(t, http.MethodPost, "/api/v1/admin/tracking/poll", adminToken, nil)
	expectStatus(t, resp, http.StatusBadGateway)

	resp = a.do(t, http.MethodPost, "/api/v1/admin/bids/match", adminToken, map[string]string{})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = a.do(t, http.MethodPatch, "/api/v1/admin/orders/missing/status", adminToken, map[string]string{
		"status": string(models.OrderCompleted),
	})
	expectStatus(t, resp, http.StatusNotFound)
}
