package pay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/xiangyupai/order-service/internal/gateway"
	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
	req "github.com/xiangyupai/order-service/lib/api/request"
	resp "github.com/xiangyupai/order-service/lib/api/response"
	"github.com/xiangyupai/order-service/lib/logger/sl"
)

type Request struct {
	OrderID       string `json:"orderId" validate:"required"`
	OrderNo       string `json:"orderNo" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=balance"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
}

type Response struct {
	resp.Response
	Data *models.PaymentAttemptResult `json:"data,omitempty"`
}

type Payer interface {
	Pay(ctx context.Context, p gateway.PayParams) (*models.PaymentAttemptResult, error)
}

// New returns the POST /api/order/pay handler. The attempt outcome rides
// in data.paymentStatus; require_password is non-terminal and the client
// follows up with /api/order/pay/verify.
func New(log *slog.Logger, gw Payer, demoUserID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.order.pay.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var request Request

		err := render.DecodeJSON(r.Body, &request)
		if err != nil {
			log.Error("failed to decode json body", sl.Err(err))

			render.JSON(w, r, resp.Error(http.StatusBadRequest, "failed to decode request"))

			return
		}

		if err := validator.New().Struct(request); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		userID := req.UserID(r, demoUserID)

		result, err := gw.Pay(r.Context(), gateway.PayParams{
			UserID:        userID,
			OrderID:       request.OrderID,
			OrderNo:       request.OrderNo,
			PaymentMethod: request.PaymentMethod,
			Amount:        request.Amount,
		})
		if errors.Is(err, storage.ErrNoOrder) {
			log.Info("order not found", slog.String("order_id", request.OrderID))

			render.JSON(w, r, resp.Error(http.StatusNotFound, "order not found"))

			return
		}
		if errors.Is(err, storage.ErrNoWallet) {
			log.Info("wallet not found", slog.Int64("user_id", userID))

			render.JSON(w, r, resp.Error(http.StatusNotFound, "wallet not found"))

			return
		}
		if err != nil {
			log.Error("payment attempt failed", sl.Err(err))

			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "payment attempt failed"))

			return
		}

		log.Info("payment attempt resolved",
			slog.String("order_id", request.OrderID),
			slog.String("payment_status", result.PaymentStatus),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Data:     result,
		})
	}
}
