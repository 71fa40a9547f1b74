package verify

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
	OrderID string `json:"orderId" validate:"required"`
	OrderNo string `json:"orderNo" validate:"required"`
	// The payment password is exactly 6 digits; anything else is
	// rejected here, before the gateway is called.
	PaymentPassword string `json:"paymentPassword" validate:"required,len=6,number"`
}

type Response struct {
	resp.Response
	Data *models.PasswordVerificationResult `json:"data,omitempty"`
}

type Verifier interface {
	VerifyPassword(ctx context.Context, p gateway.VerifyParams) (*models.PasswordVerificationResult, error)
}

// New returns the POST /api/order/pay/verify handler. Verification is
// always terminal: success or a non-success status with a reason.
func New(log *slog.Logger, gw Verifier, demoUserID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.order.verify.New"

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

		result, err := gw.VerifyPassword(r.Context(), gateway.VerifyParams{
			UserID:          userID,
			OrderID:         request.OrderID,
			OrderNo:         request.OrderNo,
			PaymentPassword: request.PaymentPassword,
		})
		if errors.Is(err, storage.ErrNoOrder) {
			log.Info("order not found", slog.String("order_id", request.OrderID))

			render.JSON(w, r, resp.Error(http.StatusNotFound, "order not found"))

			return
		}
		if err != nil {
			log.Error("password verification failed", sl.Err(err))

			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "password verification failed"))

			return
		}

		log.Info("password verification resolved",
			slog.String("order_id", request.OrderID),
			slog.String("payment_status", result.PaymentStatus),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Data:     result,
		})
	}
}
