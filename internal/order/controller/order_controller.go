package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/usecase"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "X-Idempotent-Replay"
	RequestIDHeader        = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

type CreateOrderUseCase interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*usecase.CreateOrderResult, error)
}

type ConfirmPaymentUseCase interface {
	ConfirmPayment(ctx context.Context, req dto.ConfirmPaymentRequest) (*domain.Order, error)
}

type ManageOrdersUseCase interface {
	ListOrders(ctx context.Context, search, status string) ([]domain.Order, error)
	ListMyOrders(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

type OrderController struct {
	create  CreateOrderUseCase
	confirm ConfirmPaymentUseCase
	manage  ManageOrdersUseCase
	logger  *zap.Logger
}

func NewOrderController(create CreateOrderUseCase, confirm ConfirmPaymentUseCase, manage ManageOrdersUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		create:  create,
		confirm: confirm,
		manage:  manage,
		logger:  logger,
	}
}

// Routes mounts the order endpoints. requireAuth guards the customer routes;
// the admin routes are left to whatever sits in front of the service.
func (c *OrderController) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", c.CreateOrder)
			r.Post("/confirm-payment", c.ConfirmPayment)
			r.Get("/mine", c.ListMyOrders)
			r.Get("/my", c.ListMyOrders)
		})

		r.Get("/", c.ListOrders)
		r.Put("/{orderId}", c.UpdateOrderStatus)
		r.Delete("/{orderId}", c.DeleteOrder)
	})
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace(r)

	var req dto.CreateOrderRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	result, err := c.create.CreateOrder(r.Context(), req)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		w.Header().Set(IdempotentReplayHeader, "true")
		status = http.StatusOK
	}

	response := dto.CreateOrderResponse{
		Success:      true,
		Order:        dto.NewOrderDTO(result.Order),
		GatewayOrder: result.GatewayOrder.Payload(),
	}
	if result.GatewayPublicKey != "" {
		key := result.GatewayPublicKey
		response.GatewayPublicKey = &key
	}

	logger.Info("order created", zap.String("orderId", result.Order.OrderID), zap.Bool("replayed", result.Replayed))
	c.writeJSON(w, status, response)
}

func (c *OrderController) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace(r)

	var req dto.ConfirmPaymentRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}

	order, err := c.confirm.ConfirmPayment(r.Context(), req)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderResponse{Success: true, Order: dto.NewOrderDTO(order)})
}

func (c *OrderController) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace(r)

	query := r.URL.Query()
	orders, err := c.manage.ListOrders(r.Context(), query.Get("search"), query.Get("status"))
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrdersResponse{Success: true, Orders: dto.NewOrderDTOs(orders)})
}

func (c *OrderController) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace(r)

	orders, err := c.manage.ListMyOrders(r.Context())
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrdersResponse{Success: true, Orders: dto.NewOrderDTOs(orders)})
}

func (c *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace(r)
	orderID := chi.URLParam(r, "orderId")

	var req dto.UpdateOrderStatusRequest
	if !c.decode(w, r, traceID, logger, &req) {
		return
	}

	order, err := c.manage.UpdateStatus(r.Context(), orderID, req.OrderStatus)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger.With(zap.String("orderId", orderID)))
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderResponse{Success: true, Message: "Order updated", Order: dto.NewOrderDTO(order)})
}

func (c *OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.trace(r)
	orderID := chi.URLParam(r, "orderId")

	if err := c.manage.DeleteOrder(r.Context(), orderID); err != nil {
		c.handleUseCaseError(w, traceID, err, logger.With(zap.String("orderId", orderID)))
		return
	}

	c.writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "Order deleted"})
}

// trace returns the caller's request id when present, or a fresh one, and a
// logger carrying it.
func (c *OrderController) trace(r *http.Request) (string, *zap.Logger) {
	traceID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if traceID == "" || len(traceID) > 64 {
		traceID = uuid.New().String()
	}
	return traceID, c.logger.With(zap.String("traceId", traceID), zap.String("route", r.Method+" "+r.URL.Path))
}

func (c *OrderController) decode(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		c.writeValidationError(w, traceID, "request body is required", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be a JSON object",
		})
		return false
	}

	logger.Warn("invalid JSON body", zap.Error(err))
	c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
		Field:   "body",
		Message: "request body must be valid JSON",
	})
	return false
}

func (c *OrderController) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if ue, ok := apperrors.IsUnauthenticatedError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHENTICATED", ue.Error())
		return
	}

	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", nfe.Error())
		return
	}

	if ce, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", ce.Error())
		return
	}

	if _, ok := apperrors.IsSignatureMismatchError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusBadRequest, "PAYMENT_VERIFICATION_FAILED", "Payment verification failed")
		return
	}

	if ce, ok := apperrors.IsConfigurationError(err); ok {
		logger.Error("configuration error", zap.Error(ce))
		c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "CONFIGURATION_ERROR", "the payment service is not configured")
		return
	}

	if ue, ok := apperrors.IsUpstreamError(err); ok {
		logger.Error("payment gateway error", zap.Error(ue))
		c.writeErrorResponse(w, traceID, http.StatusBadGateway, "UPSTREAM_ERROR", "payment gateway unavailable, please retry")
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *OrderController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code string, message string) {
	c.writeJSON(w, statusCode, dto.ErrorResponse{
		Success: false,
		Message: message,
		Code:    code,
		TraceID: traceID,
	})
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Success: false,
		Message: message,
		Code:    "VALIDATION_ERROR",
		TraceID: traceID,
		Details: details,
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
