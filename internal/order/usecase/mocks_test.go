package usecase

import (
	"context"
	"sync"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/infrastructure/rabbitmq"
	"storefront/internal/order/repository"
	"storefront/internal/payment"
)

func withUser(userID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID})
}

type mockOrderCreator struct {
	CreateFunc func(ctx context.Context, order *domain.Order) (*domain.Order, *payment.GatewayOrder, error)
	calls      int
}

func (m *mockOrderCreator) Create(ctx context.Context, order *domain.Order) (*domain.Order, *payment.GatewayOrder, error) {
	m.calls++
	return m.CreateFunc(ctx, order)
}

type mockIdempotencyLookup struct {
	FindByIdempotencyKeyFunc func(ctx context.Context, userID, key string) (*domain.Order, error)
}

func (m *mockIdempotencyLookup) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	return m.FindByIdempotencyKeyFunc(ctx, userID, key)
}

type mockCatalogService struct {
	GetProductsByIDsFunc func(ctx context.Context, ids []string) (map[string]domain.Product, []string, error)
}

func (m *mockCatalogService) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, []string, error) {
	return m.GetProductsByIDsFunc(ctx, ids)
}

type mockGateway struct {
	configured bool
	publicKey  string
}

func (m *mockGateway) Configured() bool  { return m.configured }
func (m *mockGateway) PublicKey() string { return m.publicKey }
func (m *mockGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.GatewayOrder, error) {
	panic("use cases reach the gateway through the creation service")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []rabbitmq.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event rabbitmq.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingMetrics struct {
	ops map[string]int
}

func (m *recordingMetrics) RecordOrderOperation(operation string, success bool) {
	if m.ops == nil {
		m.ops = map[string]int{}
	}
	key := operation + ":error"
	if success {
		key = operation + ":success"
	}
	m.ops[key]++
}

type mockSignatureVerifier struct {
	VerifyFunc func(orderRef, paymentRef, signature string) error
}

func (m *mockSignatureVerifier) Verify(orderRef, paymentRef, signature string) error {
	return m.VerifyFunc(orderRef, paymentRef, signature)
}

type mockPaymentSettler struct {
	MarkPaidFunc func(ctx context.Context, gatewayOrderRef, gatewayPaymentRef string) (*domain.Order, error)
}

func (m *mockPaymentSettler) MarkPaid(ctx context.Context, gatewayOrderRef, gatewayPaymentRef string) (*domain.Order, error) {
	return m.MarkPaidFunc(ctx, gatewayOrderRef, gatewayPaymentRef)
}

type mockOrderStore struct {
	FindByIDFunc     func(ctx context.Context, orderID string) (*domain.Order, error)
	ListFunc         func(ctx context.Context, filter repository.ListFilter) ([]domain.Order, error)
	ListByUserFunc   func(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatusFunc func(ctx context.Context, orderID string, target domain.OrderStatus, sources []domain.OrderStatus) (bool, error)
	DeleteFunc       func(ctx context.Context, orderID string) error
}

func (m *mockOrderStore) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.FindByIDFunc(ctx, orderID)
}

func (m *mockOrderStore) List(ctx context.Context, filter repository.ListFilter) ([]domain.Order, error) {
	return m.ListFunc(ctx, filter)
}

func (m *mockOrderStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return m.ListByUserFunc(ctx, userID)
}

func (m *mockOrderStore) UpdateStatus(ctx context.Context, orderID string, target domain.OrderStatus, sources []domain.OrderStatus) (bool, error) {
	return m.UpdateStatusFunc(ctx, orderID, target, sources)
}

func (m *mockOrderStore) Delete(ctx context.Context, orderID string) error {
	return m.DeleteFunc(ctx, orderID)
}
