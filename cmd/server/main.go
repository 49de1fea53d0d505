package main

import (
	"log"
	"net/http"

	_ "tablepay/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"tablepay/internal/cache"
	"tablepay/internal/config"
	"tablepay/internal/db"
	"tablepay/internal/handler"
	"tablepay/internal/logger"
	"tablepay/internal/model"
	"tablepay/internal/provider"
	"tablepay/internal/repository"
	"tablepay/internal/router"
	"tablepay/internal/service"
	"tablepay/internal/vault"
)

// @title TablePay API
// @version 1.0
// @description Provider-agnostic payment core for restaurant ordering: checkout sessions, webhook reconciliation, and per-restaurant credential management.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	zlog, err := logger.New("tablepay")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		zlog.Fatal("database init", zap.Error(err))
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.Restaurant{},
		&model.Order{},
		&model.Payment{},
		&model.PaymentLog{},
		&model.PaymentConfig{},
		&model.WebhookEvent{},
	); err != nil {
		zlog.Fatal("auto-migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()

	credVault, err := vault.New(cfg.CredentialsKey)
	if err != nil {
		// Refusing to start without a usable key beats serving with
		// credentials we cannot decrypt.
		zlog.Fatal("credential vault init", zap.Error(err))
	}

	factory := provider.NewFactory(cfg.ProviderTimeout, cfg.BaseURL)

	// Initialize repositories
	restaurantRepo := repository.NewRestaurantRepository(gormDB)
	orderRepo := repository.NewOrderRepository(gormDB)
	paymentRepo := repository.NewPaymentRepository(gormDB)
	paymentLogRepo := repository.NewPaymentLogRepository(gormDB)
	configRepo := repository.NewPaymentConfigRepository(gormDB)
	eventRepo := repository.NewWebhookEventRepository(gormDB)

	// Initialize services
	orderStatusService := service.NewOrderStatusService(orderRepo, cacheClient, zlog)
	statusUpdater := service.NewStatusUpdater(paymentRepo, paymentLogRepo, orderStatusService, zlog)
	defer statusUpdater.Close()

	paymentService := service.NewPaymentService(orderRepo, paymentRepo, restaurantRepo, configRepo, credVault, factory, orderStatusService, statusUpdater, cfg.BaseURL, zlog)
	webhookService := service.NewWebhookService(eventRepo, orderRepo, paymentRepo, configRepo, credVault, factory, statusUpdater, cacheClient, zlog)
	reconcileService := service.NewReconcileService(orderRepo, paymentRepo, configRepo, credVault, factory, statusUpdater, cacheClient, zlog)
	configService := service.NewConfigService(configRepo, credVault, factory, zlog)

	// Initialize handlers
	webhookHandler := handler.NewWebhookHandler(webhookService)
	paymentHandler := handler.NewPaymentHandler(paymentService, reconcileService)
	configHandler := handler.NewConfigHandler(configService)

	// Register routes
	router.Register(
		e,
		cfg,
		webhookHandler,
		paymentHandler,
		configHandler,
	)

	swaggerURL := cfg.BaseURL + "/swagger/index.html"
	if cfg.SwaggerHost != "" {
		swaggerURL = cfg.SwaggerHost + "/swagger/index.html"
	}
	zlog.Info("swagger documentation available", zap.String("url", swaggerURL))

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		zlog.Fatal("server start", zap.Error(err))
	}
}
