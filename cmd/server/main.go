package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/metrics"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/infrastructure/rabbitmq"
	"storefront/internal/order"
	"storefront/internal/payment"
	"storefront/internal/product"
	"storefront/internal/server"
)

type eventPublisher interface {
	Publish(ctx context.Context, event rabbitmq.Event) error
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = mysql.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		zapLogger.Fatal("migrating schema", zap.Error(err))
	}

	var events eventPublisher = rabbitmq.NoopPublisher{}
	if cfg.Events.RabbitMQURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange, zapLogger)
		if err != nil {
			zapLogger.Fatal("connecting to rabbitmq", zap.Error(err))
		}
		events = publisher
		zapLogger.Info("order events enabled", zap.String("exchange", cfg.Events.Exchange))
	} else {
		zapLogger.Info("RABBITMQ_URL not set, order events disabled")
	}
	defer events.Close()

	if !cfg.Gateway.Configured() {
		zapLogger.Warn("payment gateway credentials missing, online checkout and payment confirmation will fail")
	}
	gateway := payment.NewRazorpayClient(cfg.Gateway, &http.Client{Timeout: cfg.Gateway.Timeout}, zapLogger)
	if cfg.Auth.JWTSecret == "" {
		zapLogger.Warn("JWT_SECRET not set, authenticated routes will fail")
	}

	var (
		appMetrics *metrics.Metrics
		instrument func(http.Handler) http.Handler
		metricsH   http.Handler
	)
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New()
		instrument = appMetrics.Middleware
		metricsH = appMetrics.Handler()
	}

	orderCtrl := order.NewModule(db, cfg.Order, order.Deps{
		Gateway:  gateway,
		Verifier: payment.NewSignatureVerifier(cfg.Gateway.KeySecret),
		Catalog:  product.NewModule(db),
		Events:   events,
		Metrics:  appMetrics,
	}, zapLogger)

	router := server.NewRouter(server.RouterOptions{
		DB:             db,
		Orders:         orderCtrl,
		RequireAuth:    auth.NewGuard(cfg.Auth.JWTSecret, zapLogger).Middleware,
		Instrument:     instrument,
		MetricsHandler: metricsH,
		Logger:         zapLogger,
	})

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
