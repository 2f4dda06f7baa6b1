package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/rabbitmq"
	"storefront/internal/order/pricing"
	"storefront/internal/order/repository"
	"storefront/internal/payment"
)

type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, *payment.GatewayOrder, error)
}

type IdempotencyLookup interface {
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
}

type CatalogService interface {
	GetProductsByIDs(ctx context.Context, ids []string) (found map[string]domain.Product, notFoundIDs []string, err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event rabbitmq.Event) error
}

type MetricsRecorder interface {
	RecordOrderOperation(operation string, success bool)
}

type CreateOrderResult struct {
	Order            *domain.Order
	GatewayOrder     *payment.GatewayOrder
	GatewayPublicKey string
	// Replayed is set when the order was created by an earlier request with
	// the same idempotency key.
	Replayed bool
}

type CreateOrderUseCase struct {
	creator              OrderCreator
	orders               IdempotencyLookup
	catalog              CatalogService
	gateway              payment.Gateway
	events               EventPublisher
	metrics              MetricsRecorder
	logger               *zap.Logger
	enforceCatalogPrices bool
	newOrderID           func() string
	now                  func() time.Time
}

func NewCreateOrderUseCase(
	creator OrderCreator,
	orders IdempotencyLookup,
	catalog CatalogService,
	gateway payment.Gateway,
	events EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
	enforceCatalogPrices bool,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		creator:              creator,
		orders:               orders,
		catalog:              catalog,
		gateway:              gateway,
		events:               events,
		metrics:              metrics,
		logger:               logger,
		enforceCatalogPrices: enforceCatalogPrices,
		newOrderID:           func() string { return domain.OrderIDPrefix + uuid.New().String() },
		now:                  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (uc *CreateOrderUseCase) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*CreateOrderResult, error) {
	result, err := uc.createOrder(ctx, req)
	if uc.metrics != nil {
		uc.metrics.RecordOrderOperation("create", err == nil)
	}
	return result, err
}

func (uc *CreateOrderUseCase) createOrder(ctx context.Context, req dto.CreateOrderRequest) (*CreateOrderResult, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, apperrors.NewUnauthenticatedError("unauthorized, please log in")
	}

	in, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}
	fingerprint := in.fingerprint()

	uc.logger.Info("create order started",
		zap.String("userId", identity.UserID),
		zap.String("paymentMethod", string(in.PaymentMethod)),
		zap.Int("itemCount", len(in.Items)),
		zap.Bool("idempotent", in.IdempotencyKey != ""),
	)

	if in.IdempotencyKey != "" {
		replay, err := uc.replay(ctx, identity.UserID, in.IdempotencyKey, fingerprint)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	if uc.enforceCatalogPrices {
		if err := uc.applyCatalogPrices(ctx, in.Items); err != nil {
			return nil, err
		}
	}

	if in.PaymentMethod == domain.PaymentMethodOnline && !uc.gateway.Configured() {
		uc.logger.Error("online payment requested but gateway credentials are missing")
		return nil, apperrors.NewConfigurationError("payment gateway credentials missing")
	}

	now := uc.now()
	order := &domain.Order{
		OrderID:       uc.newOrderID(),
		UserID:        identity.UserID,
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		Items:         in.Items,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentMethod.InitialPaymentStatus(),
		OrderStatus:   domain.OrderStatusPending,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	pricing.Compute(order.Items).Apply(order)
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
		order.Fingerprint = &fingerprint
	}

	created, gatewayOrder, err := uc.creator.Create(ctx, order)
	if err != nil {
		if errors.Is(err, repository.ErrIdempotencyKeyTaken) {
			// A concurrent request with the same key won the insert.
			replay, rerr := uc.replay(ctx, identity.UserID, in.IdempotencyKey, fingerprint)
			if rerr != nil {
				return nil, rerr
			}
			if replay != nil {
				return replay, nil
			}
			return nil, apperrors.NewConflictError("idempotency key already used")
		}
		return nil, err
	}

	uc.publish(ctx, rabbitmq.Event{
		Type:    rabbitmq.EventOrderCreated,
		OrderID: created.OrderID,
		UserID:  created.UserID,
		Data: map[string]any{
			"paymentMethod": created.PaymentMethod,
			"finalAmount":   created.FinalAmount.StringFixed(2),
		},
	})

	uc.logger.Info("create order finished",
		zap.String("orderId", created.OrderID),
		zap.String("gatewayOrderId", created.GatewayOrderRef()),
	)

	return &CreateOrderResult{
		Order:            created,
		GatewayOrder:     gatewayOrder,
		GatewayPublicKey: uc.publicKey(created),
	}, nil
}

// replay returns the stored order for key, nil when the key is unused, or a
// ConflictError when the key was used for a different request.
func (uc *CreateOrderUseCase) replay(ctx context.Context, userID, key, fingerprint string) (*CreateOrderResult, error) {
	existing, err := uc.orders.FindByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, nil
		}
		return nil, err
	}

	if existing.Fingerprint == nil || *existing.Fingerprint != fingerprint {
		uc.logger.Warn("idempotency key reused with a different request",
			zap.String("userId", userID),
			zap.String("orderId", existing.OrderID),
		)
		return nil, apperrors.NewConflictError("idempotency key already used for a different order")
	}

	uc.logger.Info("replaying order for idempotency key", zap.String("orderId", existing.OrderID))

	var gatewayOrder *payment.GatewayOrder
	if existing.Gateway != nil {
		amount := pricing.MinorUnits(existing.FinalAmount)
		gatewayOrder = &payment.GatewayOrder{
			ID:        existing.Gateway.OrderRef,
			Entity:    "order",
			Amount:    amount,
			AmountDue: amount,
			Currency:  payment.Currency,
			Receipt:   existing.OrderID,
		}
		if existing.PaymentStatus == domain.PaymentStatusPaid {
			gatewayOrder.AmountPaid, gatewayOrder.AmountDue = amount, 0
		}
	}

	return &CreateOrderResult{
		Order:            existing,
		GatewayOrder:     gatewayOrder,
		GatewayPublicKey: uc.publicKey(existing),
		Replayed:         true,
	}, nil
}

func (uc *CreateOrderUseCase) publicKey(order *domain.Order) string {
	if order.PaymentMethod != domain.PaymentMethodOnline {
		return ""
	}
	return uc.gateway.PublicKey()
}

// applyCatalogPrices replaces client supplied prices and names with the
// catalog's.
func (uc *CreateOrderUseCase) applyCatalogPrices(ctx context.Context, items []domain.LineItem) error {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}

	found, notFound, err := uc.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading catalog prices: %w", err)
	}
	if len(notFound) > 0 {
		details := make([]apperrors.ValidationDetail, 0, len(notFound))
		for _, id := range notFound {
			message := fmt.Sprintf("product %s is not available", id)
			if id == "" {
				message = "an item without a productId cannot be priced from the catalog"
			}
			details = append(details, apperrors.ValidationDetail{
				Field:   "items.productId",
				Message: message,
			})
		}
		return apperrors.NewValidationError("some products are not available", details...)
	}

	for i := range items {
		p := found[items[i].ProductID]
		items[i].Price = p.Price
		items[i].Name = p.Name
		if items[i].Image == nil && p.Image != nil {
			img := *p.Image
			items[i].Image = &img
		}
	}
	return nil
}

func (uc *CreateOrderUseCase) publish(ctx context.Context, event rabbitmq.Event) {
	publishEvent(ctx, uc.events, uc.logger, event)
}

// publishEvent is best effort: the order is already committed.
func publishEvent(ctx context.Context, events EventPublisher, logger *zap.Logger, event rabbitmq.Event) {
	if events == nil {
		return
	}
	if err := events.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn("order event not published",
			zap.String("event", event.Type),
			zap.String("orderId", event.OrderID),
			zap.Error(err),
		)
	}
}
