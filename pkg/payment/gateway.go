// Package payment holds the payment gateway contract and a sandbox implementation used
// outside production.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"resell/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway is what the marketplace requires from an external payment provider.
type Gateway interface {
	Authenticate(ctx context.Context) (string, error)
	Charge(ctx context.Context, token string, req models.PaymentRequest, amount decimal.Decimal) (string, error)
	Cancel(ctx context.Context, token, externalRef string) (bool, error)
}

// ErrDeclined is returned by the sandbox for card tokens starting with "decline".
var ErrDeclined = errors.New("payment declined")

// SandboxGateway approves every charge except declined test tokens and remembers charges
// so that they can be cancelled.
type SandboxGateway struct {
	mu      sync.Mutex
	charges map[string]decimal.Decimal
}

// NewSandboxGateway creates an empty sandbox.
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{charges: make(map[string]decimal.Decimal)}
}

func (g *SandboxGateway) Authenticate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "sandbox-" + uuid.NewString(), nil
}

func (g *SandboxGateway) Charge(ctx context.Context, token string, req models.PaymentRequest, amount decimal.Decimal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.HasPrefix(token, "sandbox-") {
		return "", fmt.Errorf("invalid gateway token")
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("amount must be positive, got %s", amount)
	}
	if strings.HasPrefix(req.CardToken, "decline") {
		return "", ErrDeclined
	}
	ref := "pay_" + uuid.NewString()
	g.mu.Lock()
	g.charges[ref] = amount
	g.mu.Unlock()
	return ref, nil
}

// Cancel reports whether a live charge was found and voided.
func (g *SandboxGateway) Cancel(ctx context.Context, token, externalRef string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.charges[externalRef]; !ok {
		return false, nil
	}
	delete(g.charges, externalRef)
	return true, nil
}

// Charged returns the number of live charges.
func (g *SandboxGateway) Charged() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}
