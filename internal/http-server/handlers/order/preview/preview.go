package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/internal/storage"
	req "github.com/xiangyupai/order-service/lib/api/request"
	resp "github.com/xiangyupai/order-service/lib/api/response"
	"github.com/xiangyupai/order-service/lib/logger/sl"
)

type Request struct {
	ServiceID int64 `validate:"required,gt=0"`
	Quantity  int   `validate:"gte=0"`
}

type Response struct {
	resp.Response
	Data *models.OrderPreview `json:"data,omitempty"`
}

type Previewer interface {
	Preview(ctx context.Context, userID, serviceID int64, quantity int) (*models.OrderPreview, error)
}

// New returns the GET /api/order/preview handler. A missing or
// non-positive serviceId is a precondition failure: the client aborts the
// screen on it. Gateway calls run on the request context, so a client
// that goes away cancels the lookup.
func New(log *slog.Logger, gw Previewer, demoUserID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.order.preview.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		serviceID, _ := strconv.ParseInt(r.URL.Query().Get("serviceId"), 10, 64)
		quantity, _ := strconv.Atoi(r.URL.Query().Get("quantity"))

		request := Request{ServiceID: serviceID, Quantity: quantity}

		if err := validator.New().Struct(request); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		userID := req.UserID(r, demoUserID)

		preview, err := gw.Preview(r.Context(), userID, request.ServiceID, request.Quantity)
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
			log.Error("failed to load preview", sl.Err(err))

			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "failed to load preview"))

			return
		}

		log.Info("preview loaded", slog.Int64("service_id", request.ServiceID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Data:     preview,
		})
	}
}
