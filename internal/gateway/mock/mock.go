// Package mock is the in-memory Gateway used for local development and
// tests. It is seeded with a gofakeit catalog and a single wallet, and
// mirrors the backend's payment semantics: balance gate at creation,
// password demand above the free limit, idempotent pay.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/xiangyupai/order-service/internal/gateway"
	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
	orderGen "github.com/xiangyupai/order-service/lib/generator/order"
)

const defaultServices = 20

type Config struct {
	Seed     uint64
	Services int
	Balance  int64
	// PayPassword empty means the wallet has no payment password and
	// every attempt settles without the verification step.
	PayPassword       string
	PasswordFreeLimit int64
}

type Gateway struct {
	mu                sync.Mutex
	catalog           map[int64]orderGen.CatalogEntry
	balance           int64
	payPassword       string
	passwordFreeLimit int64
	orders            map[string]*models.Order
	seq               int
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(cfg Config) *Gateway {
	services := cfg.Services
	if services <= 0 {
		services = defaultServices
	}

	f := gofakeit.New(cfg.Seed)

	catalog := make(map[int64]orderGen.CatalogEntry, services)
	for _, entry := range orderGen.GenerateCatalog(f, services) {
		catalog[entry.ServiceID] = entry
	}

	return &Gateway{
		catalog:           catalog,
		balance:           cfg.Balance,
		payPassword:       cfg.PayPassword,
		passwordFreeLimit: cfg.PasswordFreeLimit,
		orders:            make(map[string]*models.Order),
	}
}

// Entry exposes a catalog entry, which tests use to pick valid service ids.
func (g *Gateway) Entry(serviceID int64) (orderGen.CatalogEntry, bool) {
	entry, ok := g.catalog[serviceID]

	return entry, ok
}

func (g *Gateway) Preview(_ context.Context, _, serviceID int64, _ int) (*models.OrderPreview, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.catalog[serviceID]
	if !ok {
		return nil, storage.ErrNoService
	}

	return &models.OrderPreview{
		Provider: entry.Provider,
		Service:  entry.Service,
		Price: models.PriceInfo{
			UnitPrice:   entry.UnitPrice,
			DisplayText: fmt.Sprintf("%d金币/次", entry.UnitPrice),
		},
		QuantityOptions: entry.QuantityOptions,
		UserBalance:     g.balance,
	}, nil
}

func (g *Gateway) CreateOrder(_ context.Context, p gateway.CreateParams) (*models.OrderInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.catalog[p.ServiceID]
	if !ok {
		return nil, storage.ErrNoService
	}

	opts := entry.QuantityOptions
	if p.Quantity < opts.Min || p.Quantity > opts.Max {
		return nil, fmt.Errorf("quantity %d out of range [%d, %d]", p.Quantity, opts.Min, opts.Max)
	}

	// The server is authoritative for the amount; the client's
	// totalAmount is only mirrored back through it.
	amount := entry.UnitPrice * int64(p.Quantity)

	g.seq++
	order := &models.Order{
		OrderID:   uuid.NewString(),
		OrderNo:   fmt.Sprintf("XY%s%04d", time.Now().Format("20060102150405"), g.seq),
		UserID:    p.UserID,
		ServiceID: p.ServiceID,
		Quantity:  p.Quantity,
		Amount:    amount,
		Status:    models.OrderStatusPendingPayment,
		CreatedAt: time.Now().UTC(),
	}

	g.orders[order.OrderID] = order

	sufficient := g.balance >= amount

	return &models.OrderInfo{
		OrderID:     order.OrderID,
		OrderNo:     order.OrderNo,
		Amount:      amount,
		PaymentInfo: &models.PaymentInfo{SufficientBalance: &sufficient},
	}, nil
}

func (g *Gateway) Pay(_ context.Context, p gateway.PayParams) (*models.PaymentAttemptResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[p.OrderID]
	if !ok {
		return nil, storage.ErrNoOrder
	}

	// Paying a paid order reports success again without a second debit.
	if order.Status == models.OrderStatusPaid {
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusSuccess,
			Balance:       g.balance,
		}, nil
	}

	if p.PaymentMethod != models.PaymentMethodBalance {
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusFailed,
			Balance:       g.balance,
			FailureReason: fmt.Sprintf("unsupported payment method: %s", p.PaymentMethod),
		}, nil
	}

	if g.balance < order.Amount {
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusFailed,
			Balance:       g.balance,
			FailureReason: "insufficient balance",
		}, nil
	}

	if g.payPassword != "" && order.Amount >= g.passwordFreeLimit {
		return &models.PaymentAttemptResult{
			PaymentStatus:   models.PaymentStatusRequirePassword,
			RequirePassword: true,
			Balance:         g.balance,
		}, nil
	}

	g.settle(order)

	return &models.PaymentAttemptResult{
		PaymentStatus: models.PaymentStatusSuccess,
		Balance:       g.balance,
	}, nil
}

func (g *Gateway) VerifyPassword(_ context.Context, p gateway.VerifyParams) (*models.PasswordVerificationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[p.OrderID]
	if !ok {
		return nil, storage.ErrNoOrder
	}

	if order.Status == models.OrderStatusPaid {
		return &models.PasswordVerificationResult{
			PaymentStatus: models.PaymentStatusSuccess,
		}, nil
	}

	if g.payPassword == "" || p.PaymentPassword != g.payPassword {
		return &models.PasswordVerificationResult{
			PaymentStatus: models.PaymentStatusFailed,
			FailureReason: "wrong payment password",
		}, nil
	}

	if g.balance < order.Amount {
		return &models.PasswordVerificationResult{
			PaymentStatus: models.PaymentStatusFailed,
			FailureReason: "insufficient balance",
		}, nil
	}

	g.settle(order)

	return &models.PasswordVerificationResult{
		PaymentStatus: models.PaymentStatusSuccess,
	}, nil
}

// Balance reports the wallet balance, for assertions in tests.
func (g *Gateway) Balance() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.balance
}

func (g *Gateway) settle(order *models.Order) {
	g.balance -= order.Amount
	order.Status = models.OrderStatusPaid
}
