package create

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
	ServiceID   int64 `json:"serviceId" validate:"required,gt=0"`
	Quantity    int   `json:"quantity" validate:"required,gt=0"`
	TotalAmount int64 `json:"totalAmount" validate:"required,gt=0"`
}

type Response struct {
	resp.Response
	Data *models.OrderInfo `json:"data,omitempty"`
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, p gateway.CreateParams) (*models.OrderInfo, error)
}

// New returns the POST /api/order/create handler. The response carries
// paymentInfo.sufficientBalance so the client can short-circuit to the
// top-up prompt before any payment attempt.
func New(log *slog.Logger, gw OrderCreator, demoUserID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.order.create.New"

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

		log.Info("request body decoded", slog.Any("request", request))

		if err := validator.New().Struct(request); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		userID := req.UserID(r, demoUserID)

		order, err := gw.CreateOrder(r.Context(), gateway.CreateParams{
			UserID:      userID,
			ServiceID:   request.ServiceID,
			Quantity:    request.Quantity,
			TotalAmount: request.TotalAmount,
		})
		if errors.Is(err, storage.ErrNoService) {
			log.Info("service not found", slog.Int64("service_id", request.ServiceID))

			render.JSON(w, r, resp.Error(http.StatusNotFound, "service not found"))

			return
		}
		if errors.Is(err, storage.ErrNoWallet) {
			log.Info("wallet not found", slog.Int64("user_id", userID))

			render.JSON(w, r, resp.Error(http.StatusNotFound, "wallet not found"))

			return
		}
		if err != nil {
			log.Error("failed to create order", sl.Err(err))

			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "failed to create order"))

			return
		}

		log.Info("order created",
			slog.String("order_id", order.OrderID),
			slog.Int64("amount", order.Amount),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Data:     order,
		})
	}
}
