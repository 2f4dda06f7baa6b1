package order

import (
	"database/sql"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/order/controller"
	orderrepo "storefront/internal/order/repository"
	"storefront/internal/order/service"
	"storefront/internal/order/usecase"
	"storefront/internal/payment"
)

// Deps are the collaborators the order module borrows from the rest of the
// service.
type Deps struct {
	Gateway  payment.Gateway
	Verifier usecase.SignatureVerifier
	Catalog  usecase.CatalogService
	Events   usecase.EventPublisher
	Metrics  usecase.MetricsRecorder
}

func NewModule(db *sql.DB, cfg config.OrderConfig, deps Deps, logger *zap.Logger) *controller.OrderController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)

	creationSvc := service.NewOrderCreationService(
		mysql.NewTxRunner(db),
		orderRepo,
		deps.Gateway,
		logger,
		cfg.TxTimeout,
	)

	createUC := usecase.NewCreateOrderUseCase(
		creationSvc,
		orderRepo,
		deps.Catalog,
		deps.Gateway,
		deps.Events,
		deps.Metrics,
		logger,
		cfg.EnforceCatalogPrices,
	)
	confirmUC := usecase.NewConfirmPaymentUseCase(deps.Verifier, orderRepo, deps.Events, deps.Metrics, logger)
	manageUC := usecase.NewManageOrdersUseCase(orderRepo, deps.Events, deps.Metrics, logger)

	return controller.NewOrderController(createUC, confirmUC, manageUC, logger)
}
