package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rutasur/rutasur-backend/api/routes"
	"github.com/rutasur/rutasur-backend/internal/checkout"
	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/internal/purchases"
	stripewebhook "github.com/rutasur/rutasur-backend/internal/webhooks/stripe"
	"github.com/rutasur/rutasur-backend/pkg/config"
	"github.com/rutasur/rutasur-backend/pkg/db"
	"github.com/rutasur/rutasur-backend/pkg/logger"
	"github.com/rutasur/rutasur-backend/pkg/metrics"
	"github.com/rutasur/rutasur-backend/pkg/migrate"
	"github.com/rutasur/rutasur-backend/pkg/redis"
	"github.com/rutasur/rutasur-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}
	checkoutClient := stripe.NewCheckoutClient(stripeClient)

	excursionsRepo := excursions.NewRepository(dbClient.DB())
	purchasesRepo := purchases.NewRepository(dbClient.DB())

	excursionsService, err := excursions.NewService(excursionsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create excursions service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(excursionsRepo, checkoutClient, redisClient, cfg.Checkout, cfg.Stripe)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	purchasesService, err := purchases.NewService(purchasesRepo, excursionsRepo, dbClient, checkoutClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchases service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		PurchasesRepo:     purchasesRepo,
		ExcursionsRepo:    excursionsRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:            cfg,
			Logger:            logg,
			DB:                dbClient,
			Redis:             redisClient,
			StripeClient:      stripeClient,
			ExcursionsService: excursionsService,
			CheckoutService:   checkoutService,
			PurchasesService:  purchasesService,
			WebhookService:    webhookService,
			WebhookGuard:      webhookGuard,
			WebhookMetrics:    webhookMetrics,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
