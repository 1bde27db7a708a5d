package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resell/internal/config"
	"resell/internal/models"
	"resell/internal/repositories"
	"resell/internal/repositories/repotest"
	"resell/internal/services"
	"resell/pkg/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type retryCall struct {
	event models.PaymentEvent
	delay time.Duration
}

type fakePublisher struct {
	mu            sync.Mutex
	payments      []models.PaymentEvent
	retries       []retryCall
	notifications []models.Notification
	failPayment   error
	failRetry     error
}

func (p *fakePublisher) PublishPayment(ctx context.Context, evt *models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPayment != nil {
		return p.failPayment
	}
	p.payments = append(p.payments, *evt)
	return nil
}

func (p *fakePublisher) PublishPaymentRetry(ctx context.Context, evt *models.PaymentEvent, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failRetry != nil {
		return p.failRetry
	}
	p.retries = append(p.retries, retryCall{event: *evt, delay: delay})
	return nil
}

func (p *fakePublisher) PublishNotification(ctx context.Context, n models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
	return nil
}

func (p *fakePublisher) lastPayment(t *testing.T) *models.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.payments, "no payment event was published")
	evt := p.payments[len(p.payments)-1]
	return &evt
}

func (p *fakePublisher) notified(typ, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.notifications {
		if n.Type == typ && n.UserID == userID {
			return true
		}
	}
	return false
}

// flakyGateway fails the next failCharges charges before delegating to the sandbox.
type flakyGateway struct {
	*payment.SandboxGateway
	mu          sync.Mutex
	failCharges int
	calls       int
}

var errGatewayTimeout = errors.New("gateway timeout")

func (g *flakyGateway) Charge(ctx context.Context, token string, req models.PaymentRequest, amount decimal.Decimal) (string, error) {
	g.mu.Lock()
	g.calls++
	if g.failCharges > 0 {
		g.failCharges--
		g.mu.Unlock()
		return "", errGatewayTimeout
	}
	g.mu.Unlock()
	return g.SandboxGateway.Charge(ctx, token, req, amount)
}

func (g *flakyGateway) chargeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeTracker struct {
	mu       sync.Mutex
	statuses map[string]string
	failures map[string]error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{statuses: map[string]string{}, failures: map[string]error{}}
}

func (f *fakeTracker) set(trackingNumber, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[trackingNumber] = raw
}

func (f *fakeTracker) fail(trackingNumber string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[trackingNumber] = err
}

func (f *fakeTracker) FetchStatus(ctx context.Context, trackingNumber string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[trackingNumber]; err != nil {
		return "", err
	}
	return f.statuses[trackingNumber], nil
}

var paymentConfig = config.PaymentConfig{
	Workers:        2,
	MaxRetries:     3,
	RetryBaseDelay: 2 * time.Second,
	RetryMaxDelay:  5 * time.Second,
}

var cardPayment = models.PaymentRequest{Method: models.PaymentMethodCard, CardToken: "tok_visa"}

type fixture struct {
	ctx       context.Context
	store     *repositories.GormStore
	gateway   *flakyGateway
	publisher *fakePublisher
	tracker   *fakeTracker

	warehouse *services.WarehouseService
	sales     *services.SaleService
	orders    *services.OrderService
	payments  *services.PaymentService
	bids      *services.BidService
	tracking  *services.TrackingService

	buyer   *models.User
	seller  *models.User
	variant *models.ItemVariant
	address *models.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		store:     repositories.NewGormStore(repotest.Open(t)),
		gateway:   &flakyGateway{SandboxGateway: payment.NewSandboxGateway()},
		publisher: &fakePublisher{},
		tracker:   newFakeTracker(),
	}
	notifier := services.NewNotifier(f.publisher)
	f.warehouse = services.NewWarehouseService(f.store)
	f.sales = services.NewSaleService(f.store, f.warehouse)
	f.orders = services.NewOrderService(f.store, f.sales, f.warehouse, f.gateway)
	f.payments = services.NewPaymentService(f.store, f.orders, f.gateway, f.publisher, notifier, paymentConfig)
	f.bids = services.NewBidService(f.store, f.payments, notifier)
	f.tracking = services.NewTrackingService(f.store, f.orders, f.sales, f.tracker, notifier,
		config.TrackingConfig{Concurrency: 4})

	f.buyer = f.newUser(t, "buyer")
	f.seller = f.newUser(t, "seller")

	product := &models.Product{
		Name:     "Jordan 1 Chicago",
		Brand:    "Nike",
		Variants: []models.ItemVariant{{Size: "270"}},
	}
	require.NoError(t, f.store.Products().Create(f.ctx, product))
	f.variant = &product.Variants[0]

	f.address = &models.Address{
		UserID:        f.buyer.ID,
		RecipientName: "Kim",
		Phone:         "010-0000-0000",
		ZipCode:       "04524",
		Line1:         "1 Sejong-daero",
	}
	require.NoError(t, f.store.Accounts().CreateAddress(f.ctx, f.address))
	require.NoError(t, f.store.Accounts().CreateBankAccount(f.ctx, &models.BankAccount{
		UserID:        f.seller.ID,
		BankName:      "KB",
		AccountNumber: "123-456",
		AccountHolder: "Seller",
	}))
	return f
}

func (f *fixture) newUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{
		Username: name + "-" + uuid.NewString()[:8],
		Email:    name + "-" + uuid.NewString()[:8] + "@example.com",
		Password: "hashed",
		Role:     models.RoleUser,
	}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return u
}

func callerOf(u *models.User) services.Caller {
	return services.Caller{UserID: u.ID}
}

// saleBid lists the variant for sale at price.
func (f *fixture) saleBid(t *testing.T, price int64) *models.SaleBid {
	t.Helper()
	bid, err := f.bids.CreateSaleBid(f.ctx, callerOf(f.seller), services.CreateSaleBidInput{
		ItemVariantID: f.variant.ID,
		Price:         decimal.NewFromInt(price),
	})
	require.NoError(t, err)
	return bid
}

// instantPurchase buys the sale bid as f.buyer and returns the order bid.
func (f *fixture) instantPurchase(t *testing.T, saleBidID string, warehouse bool) *models.OrderBid {
	t.Helper()
	in := services.CreateInstantOrderBidInput{
		SaleBidID:       saleBidID,
		WarehouseOption: warehouse,
		PaymentRequest:  cardPayment,
	}
	if !warehouse {
		in.AddressID = f.address.ID
	}
	bid, err := f.bids.CreateInstantOrderBid(f.ctx, callerOf(f.buyer), in)
	require.NoError(t, err)
	return bid
}

// paidPurchase lists, buys and pays for an item.
func (f *fixture) paidPurchase(t *testing.T, warehouse bool) (*models.OrderBid, *models.SaleBid) {
	t.Helper()
	saleBid := f.saleBid(t, 100)
	orderBid := f.instantPurchase(t, saleBid.ID, warehouse)
	require.NoError(t, f.payments.Handle(f.ctx, f.publisher.lastPayment(t)))
	return orderBid, saleBid
}

func (f *fixture) order(t *testing.T, id string) *models.Order {
	t.Helper()
	o, err := f.store.Orders().GetByID(f.ctx, id)
	require.NoError(t, err)
	return o
}

func (f *fixture) sale(t *testing.T, id string) *models.Sale {
	t.Helper()
	s, err := f.store.Sales().GetByID(f.ctx, id)
	require.NoError(t, err)
	return s
}

func (f *fixture) orderBid(t *testing.T, id string) *models.OrderBid {
	t.Helper()
	b, err := f.store.Bids().GetOrderBid(f.ctx, id)
	require.NoError(t, err)
	return b
}

func (f *fixture) saleBidByID(t *testing.T, id string) *models.SaleBid {
	t.Helper()
	b, err := f.store.Bids().GetSaleBid(f.ctx, id)
	require.NoError(t, err)
	return b
}
