package flow

import (
	"context"
	"fmt"

	"github.com/xiangyupai/order-service/internal/gateway"
	"github.com/xiangyupai/order-service/internal/models"
)

// Driver runs a Flow against a Gateway end to end: load, submit with the
// balance gate, attempt payment, verify the password when demanded. Every
// gateway call takes the caller's context, so an abandoned request cannot
// mutate flow state after its owner is gone.
type Driver struct {
	gw        gateway.Gateway
	userID    int64
	serviceID int64
	flow      *Flow
}

func NewDriver(gw gateway.Gateway, userID int64) *Driver {
	return &Driver{
		gw:     gw,
		userID: userID,
		flow:   New(),
	}
}

func (d *Driver) Flow() *Flow {
	return d.flow
}

// Load fetches the preview for a service and installs it. Retrying a
// failed load is just calling Load again.
func (d *Driver) Load(ctx context.Context, serviceID int64) error {
	if serviceID <= 0 {
		return fmt.Errorf("load preview: service id must be positive, got %d", serviceID)
	}

	preview, err := d.gw.Preview(ctx, d.userID, serviceID, 0)
	if err != nil {
		return fmt.Errorf("load preview: %w", err)
	}

	d.flow.LoadPreview(preview)
	d.serviceID = serviceID

	return nil
}

// SubmitAndPay creates the order and runs the first payment attempt.
// ErrInsufficientBalance short-circuits before any attempt; a
// require_password outcome leaves the flow in NeedsPassword awaiting
// VerifyPassword.
func (d *Driver) SubmitAndPay(ctx context.Context) (*models.PaymentAttemptResult, error) {
	if err := d.flow.BeginSubmit(); err != nil {
		return nil, err
	}

	order, err := d.gw.CreateOrder(ctx, gateway.CreateParams{
		UserID:      d.userID,
		ServiceID:   d.serviceID,
		Quantity:    d.flow.Value(),
		TotalAmount: d.flow.Total(),
	})
	if err != nil {
		d.flow.AbortSubmit()
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := d.flow.CompleteSubmit(order); err != nil {
		return nil, err
	}

	return d.pay(ctx)
}

// RetryPay reopens the confirmation after a failed attempt and pays
// again, reusing the existing order.
func (d *Driver) RetryPay(ctx context.Context) (*models.PaymentAttemptResult, error) {
	if err := d.flow.Reopen(); err != nil {
		return nil, err
	}

	return d.pay(ctx)
}

func (d *Driver) pay(ctx context.Context) (*models.PaymentAttemptResult, error) {
	if err := d.flow.BeginAttempt(); err != nil {
		return nil, err
	}

	order := d.flow.Order()

	res, err := d.gw.Pay(ctx, gateway.PayParams{
		UserID:        d.userID,
		OrderID:       order.OrderID,
		OrderNo:       order.OrderNo,
		PaymentMethod: models.PaymentMethodBalance,
		Amount:        order.Amount,
	})
	if err != nil {
		// Transport failures resolve the same way as a failed outcome.
		if applyErr := d.flow.ApplyAttempt(nil); applyErr != nil {
			return nil, applyErr
		}
		return nil, fmt.Errorf("pay order: %w", err)
	}

	if err := d.flow.ApplyAttempt(res); err != nil {
		return nil, err
	}

	return res, nil
}

// VerifyPassword runs the secondary confirmation step. A password of the
// wrong length is rejected locally without a gateway call.
func (d *Driver) VerifyPassword(ctx context.Context, password string) (*models.PasswordVerificationResult, error) {
	if d.flow.Order() == nil {
		return nil, ErrNoOrderInfo
	}

	if err := d.flow.EnterPassword(password); err != nil {
		return nil, err
	}

	order := d.flow.Order()

	res, err := d.gw.VerifyPassword(ctx, gateway.VerifyParams{
		UserID:          d.userID,
		OrderID:         order.OrderID,
		OrderNo:         order.OrderNo,
		PaymentPassword: d.flow.Password(),
	})
	if err != nil {
		if applyErr := d.flow.ApplyVerification(nil); applyErr != nil {
			return nil, applyErr
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if err := d.flow.ApplyVerification(res); err != nil {
		return nil, err
	}

	return res, nil
}
