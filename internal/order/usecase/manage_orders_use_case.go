package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/rabbitmq"
	"storefront/internal/order/repository"
)

type OrderStore interface {
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)
	List(ctx context.Context, filter repository.ListFilter) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, target domain.OrderStatus, sources []domain.OrderStatus) (bool, error)
	Delete(ctx context.Context, orderID string) error
}

// ManageOrdersUseCase serves order listings and the admin status and delete
// operations.
type ManageOrdersUseCase struct {
	orders  OrderStore
	events  EventPublisher
	metrics MetricsRecorder
	logger  *zap.Logger
}

func NewManageOrdersUseCase(orders OrderStore, events EventPublisher, metrics MetricsRecorder, logger *zap.Logger) *ManageOrdersUseCase {
	return &ManageOrdersUseCase{
		orders:  orders,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// ListOrders returns every order matching the optional status and search
// filters, newest first. An unknown status matches nothing.
func (uc *ManageOrdersUseCase) ListOrders(ctx context.Context, search, status string) ([]domain.Order, error) {
	filter := repository.ListFilter{Search: strings.TrimSpace(search)}

	if status = strings.TrimSpace(status); status != "" {
		parsed, ok := domain.ParseOrderStatus(status)
		if !ok {
			return []domain.Order{}, nil
		}
		filter.Status = parsed
	}

	return uc.orders.List(ctx, filter)
}

func (uc *ManageOrdersUseCase) ListMyOrders(ctx context.Context) ([]domain.Order, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, apperrors.NewUnauthenticatedError("unauthorized")
	}
	return uc.orders.ListByUser(ctx, identity.UserID)
}

// UpdateStatus moves the order along the status graph. Re-applying the current
// status succeeds without a write; any other edge outside the graph is a
// ConflictError.
func (uc *ManageOrdersUseCase) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	order, err := uc.updateStatus(ctx, orderID, status)
	if uc.metrics != nil {
		uc.metrics.RecordOrderOperation("update_status", err == nil)
	}
	return order, err
}

func (uc *ManageOrdersUseCase) updateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, apperrors.NewValidationError("order status required", apperrors.ValidationDetail{
			Field:   "orderStatus",
			Message: "orderStatus is required",
		})
	}
	target, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, apperrors.NewValidationError("unknown order status", apperrors.ValidationDetail{
			Field:   "orderStatus",
			Message: "orderStatus must be one of Pending, Confirmed, Completed, Cancelled",
		})
	}

	current, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.OrderStatus == target {
		return current, nil
	}
	if !current.OrderStatus.CanTransitionTo(target) {
		return nil, transitionConflict(current.OrderStatus, target)
	}

	changed, err := uc.orders.UpdateStatus(ctx, orderID, target, domain.SourcesFor(target))
	if err != nil {
		return nil, err
	}

	updated, err := uc.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !changed && updated.OrderStatus != target {
		// Another update moved the order first.
		return nil, transitionConflict(updated.OrderStatus, target)
	}

	uc.logger.Info("order status updated",
		zap.String("orderId", orderID),
		zap.String("from", string(current.OrderStatus)),
		zap.String("to", string(target)),
	)

	publishEvent(ctx, uc.events, uc.logger, rabbitmq.Event{
		Type:    rabbitmq.EventOrderStatusChanged,
		OrderID: orderID,
		UserID:  updated.UserID,
		Data: map[string]any{
			"from": current.OrderStatus,
			"to":   target,
		},
	})

	return updated, nil
}

func transitionConflict(from, to domain.OrderStatus) error {
	return apperrors.NewConflictError(fmt.Sprintf("cannot change order status from %s to %s", from, to))
}

func (uc *ManageOrdersUseCase) DeleteOrder(ctx context.Context, orderID string) error {
	err := uc.orders.Delete(ctx, orderID)
	if uc.metrics != nil {
		uc.metrics.RecordOrderOperation("delete", err == nil)
	}
	if err != nil {
		return err
	}

	uc.logger.Info("order deleted", zap.String("orderId", orderID))
	publishEvent(ctx, uc.events, uc.logger, rabbitmq.Event{
		Type:    rabbitmq.EventOrderDeleted,
		OrderID: orderID,
	})
	return nil
}
