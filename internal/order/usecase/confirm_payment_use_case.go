package usecase

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/rabbitmq"
)

type SignatureVerifier interface {
	Verify(orderRef, paymentRef, signature string) error
}

type PaymentSettler interface {
	MarkPaid(ctx context.Context, gatewayOrderRef, gatewayPaymentRef string) (*domain.Order, error)
}

// ConfirmPaymentUseCase settles an online order once the gateway signature
// checks out. Settlement always writes the same target state, so replays of a
// verified confirmation converge.
type ConfirmPaymentUseCase struct {
	verifier SignatureVerifier
	orders   PaymentSettler
	events   EventPublisher
	metrics  MetricsRecorder
	logger   *zap.Logger
}

func NewConfirmPaymentUseCase(
	verifier SignatureVerifier,
	orders PaymentSettler,
	events EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *ConfirmPaymentUseCase {
	return &ConfirmPaymentUseCase{
		verifier: verifier,
		orders:   orders,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

func (uc *ConfirmPaymentUseCase) ConfirmPayment(ctx context.Context, req dto.ConfirmPaymentRequest) (*domain.Order, error) {
	order, err := uc.confirmPayment(ctx, req)
	if uc.metrics != nil {
		uc.metrics.RecordOrderOperation("confirm_payment", err == nil)
	}
	return order, err
}

func (uc *ConfirmPaymentUseCase) confirmPayment(ctx context.Context, req dto.ConfirmPaymentRequest) (*domain.Order, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, apperrors.NewUnauthenticatedError("unauthorized, please log in")
	}

	orderRef, paymentRef, signature := req.OrderRef(), req.PaymentRef(), req.SignatureValue()

	var details []apperrors.ValidationDetail
	if orderRef == "" {
		details = append(details, apperrors.ValidationDetail{Field: "gatewayOrderRef", Message: "gateway order reference is required"})
	}
	if paymentRef == "" {
		details = append(details, apperrors.ValidationDetail{Field: "gatewayPaymentRef", Message: "gateway payment reference is required"})
	}
	if signature == "" {
		details = append(details, apperrors.ValidationDetail{Field: "signature", Message: "signature is required"})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid payment data", details...)
	}

	if err := uc.verifier.Verify(orderRef, paymentRef, signature); err != nil {
		uc.logger.Warn("payment confirmation rejected",
			zap.String("userId", identity.UserID),
			zap.String("gatewayOrderId", orderRef),
			zap.Error(err),
		)
		return nil, err
	}

	order, err := uc.orders.MarkPaid(ctx, orderRef, paymentRef)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("payment confirmed",
		zap.String("orderId", order.OrderID),
		zap.String("gatewayOrderId", orderRef),
		zap.String("gatewayPaymentId", paymentRef),
	)

	publishEvent(ctx, uc.events, uc.logger, rabbitmq.Event{
		Type:    rabbitmq.EventOrderPaid,
		OrderID: order.OrderID,
		UserID:  order.UserID,
		Data: map[string]any{
			"gatewayOrderRef":   orderRef,
			"gatewayPaymentRef": paymentRef,
		},
	})

	return order, nil
}
