// Package backend is the production Gateway: previews and orders live in
// PostgreSQL, preview snapshots are cached in Redis, and terminal payment
// outcomes are published to Kafka for the settlement ledger.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiangyupai/order-service/internal/gateway"
	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
	"github.com/xiangyupai/order-service/lib/logger/sl"
)

type Storage interface {
	GetPreview(ctx context.Context, userID, serviceID int64) (*models.OrderPreview, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	VerifyPassword(ctx context.Context, userID int64, password string) error
	DebitAndMarkPaid(ctx context.Context, orderID string, userID int64) (int64, error)
}

type Cache interface {
	GetPreview(ctx context.Context, userID, serviceID int64) (*models.OrderPreview, error)
	SavePreview(ctx context.Context, userID, serviceID int64, preview *models.OrderPreview) error
	SaveOrder(ctx context.Context, order *models.Order) error
}

type Publisher interface {
	PublishOrderEvent(topic string, event *models.OrderEvent) error
}

type Gateway struct {
	storage           Storage
	cache             Cache
	publisher         Publisher
	topic             string
	passwordFreeLimit int64
	log               *slog.Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(
	storage Storage,
	cache Cache,
	publisher Publisher,
	topic string,
	passwordFreeLimit int64,
	log *slog.Logger,
) *Gateway {
	return &Gateway{
		storage:           storage,
		cache:             cache,
		publisher:         publisher,
		topic:             topic,
		passwordFreeLimit: passwordFreeLimit,
		log:               log,
	}
}

// Preview serves the snapshot from cache when possible; a miss falls
// through to Postgres and refills the cache.
func (g *Gateway) Preview(ctx context.Context, userID, serviceID int64, _ int) (*models.OrderPreview, error) {
	const fn = "gateway.backend.Preview"

	preview, err := g.cache.GetPreview(ctx, userID, serviceID)
	if err == nil {
		return preview, nil
	}
	if !errors.Is(err, storage.ErrNoPreview) {
		g.log.Error("preview cache lookup failed", sl.Err(err))
	}

	preview, err = g.storage.GetPreview(ctx, userID, serviceID)
	if err != nil {
		if errors.Is(err, storage.ErrNoService) || errors.Is(err, storage.ErrNoWallet) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	if err := g.cache.SavePreview(ctx, userID, serviceID, preview); err != nil {
		g.log.Error("can't cache preview", sl.Err(err))
	}

	return preview, nil
}

// CreateOrder persists a pending order and runs the balance gate. The
// server recomputes the amount; the client's totalAmount is advisory.
func (g *Gateway) CreateOrder(ctx context.Context, p gateway.CreateParams) (*models.OrderInfo, error) {
	const fn = "gateway.backend.CreateOrder"

	preview, err := g.Preview(ctx, p.UserID, p.ServiceID, p.Quantity)
	if err != nil {
		return nil, err
	}

	opts := preview.QuantityOptions
	if p.Quantity < opts.Min || p.Quantity > opts.Max {
		return nil, fmt.Errorf("quantity %d out of range [%d, %d]", p.Quantity, opts.Min, opts.Max)
	}

	amount := preview.Price.UnitPrice * int64(p.Quantity)
	if p.TotalAmount != amount {
		g.log.Warn("client total differs from server amount",
			slog.Int64("client_total", p.TotalAmount),
			slog.Int64("server_amount", amount),
		)
	}

	wallet, err := g.storage.GetWallet(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNoWallet) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	orderID := uuid.NewString()

	order := &models.Order{
		OrderID:   orderID,
		OrderNo:   orderNo(orderID),
		UserID:    p.UserID,
		ServiceID: p.ServiceID,
		Quantity:  p.Quantity,
		Amount:    amount,
		Status:    models.OrderStatusPendingPayment,
		CreatedAt: time.Now().UTC(),
	}

	if err := g.storage.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	sufficient := wallet.Balance >= amount

	return &models.OrderInfo{
		OrderID:     order.OrderID,
		OrderNo:     order.OrderNo,
		Amount:      amount,
		PaymentInfo: &models.PaymentInfo{SufficientBalance: &sufficient},
	}, nil
}

// orderNo derives the human-readable order number from the order id, so
// two orders created within the same second cannot collide on the
// orders.order_no unique index.
func orderNo(orderID string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(orderID, "-", ""))

	return fmt.Sprintf("XY%s%s", time.Now().Format("20060102150405"), suffix[:8])
}

// Pay runs one payment attempt. Exactly one branch is taken: success,
// require_password, or failed; require_password never debits.
func (g *Gateway) Pay(ctx context.Context, p gateway.PayParams) (*models.PaymentAttemptResult, error) {
	const fn = "gateway.backend.Pay"

	order, err := g.storage.GetOrder(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, storage.ErrNoOrder) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	wallet, err := g.storage.GetWallet(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNoWallet) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	if order.Status == models.OrderStatusPaid {
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusSuccess,
			Balance:       wallet.Balance,
		}, nil
	}

	if p.PaymentMethod != models.PaymentMethodBalance {
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusFailed,
			Balance:       wallet.Balance,
			FailureReason: fmt.Sprintf("unsupported payment method: %s", p.PaymentMethod),
		}, nil
	}

	if wallet.Balance < order.Amount {
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusFailed,
			Balance:       wallet.Balance,
			FailureReason: "insufficient balance",
		}, nil
	}

	if wallet.HasPassword && order.Amount >= g.passwordFreeLimit {
		return &models.PaymentAttemptResult{
			PaymentStatus:   models.PaymentStatusRequirePassword,
			RequirePassword: true,
			Balance:         wallet.Balance,
		}, nil
	}

	balance, err := g.settle(ctx, order, p.UserID)
	if err != nil {
		return g.settleFailure(wallet.Balance, err)
	}

	return &models.PaymentAttemptResult{
		PaymentStatus: models.PaymentStatusSuccess,
		Balance:       balance,
	}, nil
}

// VerifyPassword is the second confirmation step and is always terminal.
func (g *Gateway) VerifyPassword(ctx context.Context, p gateway.VerifyParams) (*models.PasswordVerificationResult, error) {
	const fn = "gateway.backend.VerifyPassword"

	order, err := g.storage.GetOrder(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, storage.ErrNoOrder) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	if order.Status == models.OrderStatusPaid {
		return &models.PasswordVerificationResult{
			PaymentStatus: models.PaymentStatusSuccess,
		}, nil
	}

	err = g.storage.VerifyPassword(ctx, p.UserID, p.PaymentPassword)
	if errors.Is(err, storage.ErrBadPassword) {
		return &models.PasswordVerificationResult{
			PaymentStatus: models.PaymentStatusFailed,
			FailureReason: "wrong payment password",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	if _, err := g.settle(ctx, order, p.UserID); err != nil {
		if errors.Is(err, storage.ErrLowBalance) {
			return &models.PasswordVerificationResult{
				PaymentStatus: models.PaymentStatusFailed,
				FailureReason: "insufficient balance",
			}, nil
		}
		if errors.Is(err, storage.ErrOrderPaid) {
			return &models.PasswordVerificationResult{
				PaymentStatus: models.PaymentStatusSuccess,
			}, nil
		}
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	return &models.PasswordVerificationResult{
		PaymentStatus: models.PaymentStatusSuccess,
	}, nil
}

// settle debits the wallet, marks the order paid, and fans the terminal
// event out to the cache and the settlement topic. Cache and publish
// failures are logged, not surfaced: the debit already committed.
func (g *Gateway) settle(ctx context.Context, order *models.Order, userID int64) (int64, error) {
	balance, err := g.storage.DebitAndMarkPaid(ctx, order.OrderID, userID)
	if err != nil {
		return balance, err
	}

	order.Status = models.OrderStatusPaid

	if err := g.cache.SaveOrder(ctx, order); err != nil {
		g.log.Error("can't cache paid order", sl.Err(err))
	}

	if g.publisher != nil {
		event := &models.OrderEvent{
			OrderID:    order.OrderID,
			OrderNo:    order.OrderNo,
			UserID:     order.UserID,
			ServiceID:  order.ServiceID,
			Quantity:   order.Quantity,
			Amount:     order.Amount,
			Status:     models.OrderStatusPaid,
			OccurredAt: time.Now().UTC(),
		}

		if err := g.publisher.PublishOrderEvent(g.topic, event); err != nil {
			g.log.Error("can't publish order event", sl.Err(err))
		}
	}

	return balance, nil
}

func (g *Gateway) settleFailure(balance int64, err error) (*models.PaymentAttemptResult, error) {
	switch {
	case errors.Is(err, storage.ErrOrderPaid):
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusSuccess,
			Balance:       balance,
		}, nil
	case errors.Is(err, storage.ErrLowBalance):
		return &models.PaymentAttemptResult{
			PaymentStatus: models.PaymentStatusFailed,
			Balance:       balance,
			FailureReason: "insufficient balance",
		}, nil
	default:
		return nil, err
	}
}
