package verify_test

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
	"github.com/xiangyupai/order-service/internal/http-server/handlers/order/verify"
	"github.com/xiangyupai/order-service/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postVerify(t *testing.T, handler http.HandlerFunc, body string) verify.Response {
	t.Helper()

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/order/pay/verify", bytes.NewBufferString(body))
	handler.ServeHTTP(rr, r)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp verify.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return resp
}

func TestVerifyHandler(t *testing.T) {
	gw := mock.New(mock.Config{
		Seed:              1,
		Balance:           100_000,
		PayPassword:       "246810",
		PasswordFreeLimit: 1,
	})
	handler := verify.New(discardLogger(), gw, 1)

	order, err := gw.CreateOrder(context.Background(), gateway.CreateParams{
		UserID:    1,
		ServiceID: 1,
		Quantity:  1,
	})
	require.NoError(t, err)

	body := func(orderID, password string) string {
		return fmt.Sprintf(`{"orderId": %q, "orderNo": %q, "paymentPassword": %q}`, orderID, order.OrderNo, password)
	}

	t.Run("short password rejected before gateway", func(t *testing.T) {
		resp := postVerify(t, handler, body(order.OrderID, "12345"))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Message, "PaymentPassword")
		assert.Nil(t, resp.Data)
	})

	t.Run("non-numeric password rejected", func(t *testing.T) {
		resp := postVerify(t, handler, body(order.OrderID, "abcdef"))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Nil(t, resp.Data)
	})

	t.Run("unknown order", func(t *testing.T) {
		resp := postVerify(t, handler, body("missing", "246810"))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("wrong password is a terminal failure in the data", func(t *testing.T) {
		resp := postVerify(t, handler, body(order.OrderID, "999999"))

		// The envelope itself is OK; the outcome rides in data.
		assert.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, resp.Data)
		assert.Equal(t, models.PaymentStatusFailed, resp.Data.PaymentStatus)
		assert.NotEmpty(t, resp.Data.FailureReason)
	})

	t.Run("correct password settles", func(t *testing.T) {
		resp := postVerify(t, handler, body(order.OrderID, "246810"))

		assert.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, resp.Data)
		assert.Equal(t, models.PaymentStatusSuccess, resp.Data.PaymentStatus)
		assert.Equal(t, int64(100_000)-order.Amount, gw.Balance())
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := postVerify(t, handler, `{"orderId":`)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
