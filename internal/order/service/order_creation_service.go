package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/order/pricing"
	"storefront/internal/payment"
)

const defaultTxTimeout = 15 * time.Second

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error
}

type OrderWriter interface {
	Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	SetGatewayOrderRef(ctx context.Context, tx *sql.Tx, orderID, gatewayOrderRef string) error
}

// OrderCreationService persists a new order and, for online payment, opens
// the matching gateway order inside the same transaction window. If the gateway
// call fails the local insert is rolled back, so no order exists without its
// gateway reference.
type OrderCreationService struct {
	tx        TxRunner
	orders    OrderWriter
	gateway   payment.Gateway
	logger    *zap.Logger
	txTimeout time.Duration
}

func NewOrderCreationService(
	tx TxRunner,
	orders OrderWriter,
	gateway payment.Gateway,
	logger *zap.Logger,
	txTimeout time.Duration,
) *OrderCreationService {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	return &OrderCreationService{
		tx:        tx,
		orders:    orders,
		gateway:   gateway,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

// Create stores order and returns it together with the gateway order, which is
// nil for cash on delivery.
func (s *OrderCreationService) Create(ctx context.Context, order *domain.Order) (*domain.Order, *payment.GatewayOrder, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var gatewayOrder *payment.GatewayOrder

	err := s.tx.WithinTx(txCtx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.orders.Insert(ctx, tx, order); err != nil {
			s.logger.Warn("order insert failed", zap.String("orderId", order.OrderID), zap.Error(err))
			return err
		}

		if order.PaymentMethod != domain.PaymentMethodOnline {
			return nil
		}

		gw, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
			AmountMinor: pricing.MinorUnits(order.FinalAmount),
			Currency:    payment.Currency,
			Receipt:     order.OrderID,
			Notes:       map[string]string{"userId": order.UserID},
		})
		if err != nil {
			s.logger.Warn("gateway order failed, rolling back", zap.String("orderId", order.OrderID), zap.Error(err))
			return err
		}
		gatewayOrder = gw

		return s.orders.SetGatewayOrderRef(ctx, tx, order.OrderID, gw.ID)
	})
	if err != nil {
		if gatewayOrder != nil {
			// The gateway holds an order this service never recorded.
			s.logger.Error("gateway order orphaned, local order not persisted",
				zap.String("orderId", order.OrderID),
				zap.String("gatewayOrderId", gatewayOrder.ID),
				zap.Int64("amountMinor", gatewayOrder.Amount),
				zap.Error(err),
			)
		}
		return nil, nil, err
	}

	if gatewayOrder != nil {
		order.Gateway = &domain.GatewayRefs{OrderRef: gatewayOrder.ID}
	}

	s.logger.Info("order persisted",
		zap.String("orderId", order.OrderID),
		zap.String("paymentMethod", string(order.PaymentMethod)),
		zap.String("finalAmount", order.FinalAmount.StringFixed(2)),
	)

	return order, gatewayOrder, nil
}
