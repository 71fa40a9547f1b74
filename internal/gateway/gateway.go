// Package gateway defines the data-source boundary of the payment flow.
// Two implementations exist: an in-memory mock seeded with fake data and
// the Postgres/Redis-backed one. The implementation is chosen once at the
// composition root; call sites never branch on it.
package gateway

import (
	"context"

	"github.com/xiangyupai/order-service/internal/models"
)

type CreateParams struct {
	UserID      int64
	ServiceID   int64
	Quantity    int
	TotalAmount int64
}

type PayParams struct {
	UserID        int64
	OrderID       string
	OrderNo       string
	PaymentMethod string
	Amount        int64
}

type VerifyParams struct {
	UserID          int64
	OrderID         string
	OrderNo         string
	PaymentPassword string
}

// Gateway covers the four operations of the confirmation flow: preview,
// create, pay, verify. The balance gate always runs inside CreateOrder;
// VerifyPassword is only meaningful after Pay reported require_password.
type Gateway interface {
	Preview(ctx context.Context, userID, serviceID int64, quantity int) (*models.OrderPreview, error)
	CreateOrder(ctx context.Context, p CreateParams) (*models.OrderInfo, error)
	Pay(ctx context.Context, p PayParams) (*models.PaymentAttemptResult, error)
	VerifyPassword(ctx context.Context, p VerifyParams) (*models.PasswordVerificationResult, error)
}
