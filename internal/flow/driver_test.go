package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiangyupai/order-service/internal/gateway"
	"github.com/xiangyupai/order-service/internal/gateway/mock"
	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
)

const (
	testUserID    = int64(1)
	testServiceID = int64(1)
)

func payParamsFor(order *models.OrderInfo) gateway.PayParams {
	return gateway.PayParams{
		UserID:        testUserID,
		OrderID:       order.OrderID,
		OrderNo:       order.OrderNo,
		PaymentMethod: models.PaymentMethodBalance,
		Amount:        order.Amount,
	}
}

func TestDriver_HappyPath(t *testing.T) {
	ctx := context.Background()

	gw := mock.New(mock.Config{Seed: 1, Balance: 100_000})
	d := NewDriver(gw, testUserID)

	require.NoError(t, d.Load(ctx, testServiceID))

	entry, ok := gw.Entry(testServiceID)
	require.True(t, ok)
	require.Equal(t, entry.UnitPrice, d.Flow().Preview().Price.UnitPrice)

	require.True(t, d.Flow().Increase())
	wantAmount := entry.UnitPrice * 2

	res, err := d.SubmitAndPay(ctx)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusSuccess, res.PaymentStatus)

	assert.Equal(t, StateSucceeded, d.Flow().State())
	assert.Equal(t, wantAmount, d.Flow().Order().Amount)
	assert.Equal(t, int64(100_000)-wantAmount, gw.Balance())
}

func TestDriver_LoadRejectsBadService(t *testing.T) {
	ctx := context.Background()

	gw := mock.New(mock.Config{Seed: 1, Balance: 1000})
	d := NewDriver(gw, testUserID)

	assert.Error(t, d.Load(ctx, 0))
	assert.ErrorIs(t, d.Load(ctx, 9999), storage.ErrNoService)

	// Without a preview there is nothing to submit.
	_, err := d.SubmitAndPay(ctx)
	assert.ErrorIs(t, err, ErrSubmitUnavailable)
}

func TestDriver_InsufficientBalanceShortCircuits(t *testing.T) {
	ctx := context.Background()

	gw := mock.New(mock.Config{Seed: 1, Balance: 10})
	d := NewDriver(gw, testUserID)

	require.NoError(t, d.Load(ctx, testServiceID))

	res, err := d.SubmitAndPay(ctx)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Nil(t, res)

	// No payment attempt was made, so nothing was debited and the flow
	// waits in Idle for a top-up.
	assert.Equal(t, StateIdle, d.Flow().State())
	assert.Equal(t, int64(10), gw.Balance())
	assert.NotNil(t, d.Flow().Order())
}

func TestDriver_PasswordDemandedAboveFreeLimit(t *testing.T) {
	ctx := context.Background()

	gw := mock.New(mock.Config{
		Seed:              1,
		Balance:           100_000,
		PayPassword:       "654321",
		PasswordFreeLimit: 1,
	})
	d := NewDriver(gw, testUserID)

	require.NoError(t, d.Load(ctx, testServiceID))

	res, err := d.SubmitAndPay(ctx)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusRequirePassword, res.PaymentStatus)

	assert.Equal(t, StateNeedsPassword, d.Flow().State())
	assert.Equal(t, int64(100_000), gw.Balance(), "nothing debited before verification")

	// Wrong length never reaches the gateway.
	_, err = d.VerifyPassword(ctx, "654")
	require.ErrorIs(t, err, ErrPasswordLength)
	assert.Equal(t, StateNeedsPassword, d.Flow().State())

	// Wrong password keeps the modal open for another attempt.
	vres, err := d.VerifyPassword(ctx, "111111")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusFailed, vres.PaymentStatus)
	assert.Equal(t, StateNeedsPassword, d.Flow().State())
	assert.Empty(t, d.Flow().Password())

	vres, err = d.VerifyPassword(ctx, "654321")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusSuccess, vres.PaymentStatus)

	assert.Equal(t, StateSucceeded, d.Flow().State())
	assert.Equal(t, int64(100_000)-d.Flow().Order().Amount, gw.Balance())
}

func TestDriver_RetryAfterFailedAttempt(t *testing.T) {
	ctx := context.Background()

	gw := mock.New(mock.Config{Seed: 1, Balance: 100_000, PayPassword: "654321", PasswordFreeLimit: 1})
	d := NewDriver(gw, testUserID)

	require.NoError(t, d.Load(ctx, testServiceID))

	res, err := d.SubmitAndPay(ctx)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusRequirePassword, res.PaymentStatus)

	// Dismissing the password modal returns to Idle with the order kept.
	require.NoError(t, d.Flow().Dismiss())
	assert.Equal(t, StateIdle, d.Flow().State())

	// Reopen demands the password again, idempotently.
	_, err = d.RetryPay(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNeedsPassword, d.Flow().State())
}

func TestDriver_PayingPaidOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()

	gw := mock.New(mock.Config{Seed: 1, Balance: 100_000})
	d := NewDriver(gw, testUserID)

	require.NoError(t, d.Load(ctx, testServiceID))

	_, err := d.SubmitAndPay(ctx)
	require.NoError(t, err)

	balanceAfter := gw.Balance()
	order := d.Flow().Order()

	// A duplicate pay request for the settled order reports success again
	// without a second debit.
	res, err := gw.Pay(ctx, payParamsFor(order))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, res.PaymentStatus)
	assert.Equal(t, balanceAfter, gw.Balance())
}
