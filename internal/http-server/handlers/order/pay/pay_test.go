package pay_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiangyupai/order-service/internal/gateway"
	"github.com/xiangyupai/order-service/internal/gateway/mock"
	"github.com/xiangyupai/order-service/internal/http-server/handlers/order/pay"
	"github.com/xiangyupai/order-service/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postPay(t *testing.T, handler http.HandlerFunc, body string) pay.Response {
	t.Helper()

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/order/pay", bytes.NewBufferString(body))
	handler.ServeHTTP(rr, r)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp pay.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return resp
}

func newOrder(t *testing.T, gw *mock.Gateway) *models.OrderInfo {
	t.Helper()

	order, err := gw.CreateOrder(context.Background(), gateway.CreateParams{
		UserID:    1,
		ServiceID: 1,
		Quantity:  1,
	})
	require.NoError(t, err)

	return order
}

func payBody(order *models.OrderInfo, method string) string {
	return fmt.Sprintf(
		`{"orderId": %q, "orderNo": %q, "paymentMethod": %q, "amount": %d}`,
		order.OrderID, order.OrderNo, method, order.Amount,
	)
}

func TestPayHandler_Success(t *testing.T) {
	gw := mock.New(mock.Config{Seed: 1, Balance: 100_000})
	handler := pay.New(discardLogger(), gw, 1)

	order := newOrder(t, gw)

	resp := postPay(t, handler, payBody(order, "balance"))

	assert.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, resp.Data)
	assert.Equal(t, models.PaymentStatusSuccess, resp.Data.PaymentStatus)
	assert.Equal(t, int64(100_000)-order.Amount, resp.Data.Balance)
}

func TestPayHandler_RequirePassword(t *testing.T) {
	gw := mock.New(mock.Config{
		Seed:              1,
		Balance:           100_000,
		PayPassword:       "246810",
		PasswordFreeLimit: 1,
	})
	handler := pay.New(discardLogger(), gw, 1)

	order := newOrder(t, gw)

	// The demand is a successful envelope; the client follows up with
	// /api/order/pay/verify.
	resp := postPay(t, handler, payBody(order, "balance"))

	assert.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, resp.Data)
	assert.Equal(t, models.PaymentStatusRequirePassword, resp.Data.PaymentStatus)
	assert.True(t, resp.Data.RequirePassword)
	assert.Equal(t, int64(100_000), gw.Balance())
}

func TestPayHandler_Validation(t *testing.T) {
	gw := mock.New(mock.Config{Seed: 1, Balance: 100_000})
	handler := pay.New(discardLogger(), gw, 1)

	order := newOrder(t, gw)

	t.Run("unsupported payment method", func(t *testing.T) {
		resp := postPay(t, handler, payBody(order, "wechat"))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Message, "PaymentMethod")
		assert.Nil(t, resp.Data)
	})

	t.Run("missing order id", func(t *testing.T) {
		resp := postPay(t, handler, `{"orderNo": "XY1", "paymentMethod": "balance", "amount": 100}`)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := postPay(t, handler, `{"orderId":`)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestPayHandler_UnknownOrder(t *testing.T) {
	gw := mock.New(mock.Config{Seed: 1, Balance: 100_000})
	handler := pay.New(discardLogger(), gw, 1)

	resp := postPay(t, handler, `{"orderId": "missing", "orderNo": "XY1", "paymentMethod": "balance", "amount": 100}`)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "order not found", resp.Message)
}
