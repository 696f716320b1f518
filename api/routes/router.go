package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rutasur/rutasur-backend/api/controllers"
	webhookcontrollers "github.com/rutasur/rutasur-backend/api/controllers/webhooks"
	"github.com/rutasur/rutasur-backend/api/middleware"
	"github.com/rutasur/rutasur-backend/internal/checkout"
	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/internal/purchases"
	stripewebhook "github.com/rutasur/rutasur-backend/internal/webhooks/stripe"
	"github.com/rutasur/rutasur-backend/pkg/config"
	"github.com/rutasur/rutasur-backend/pkg/db"
	"github.com/rutasur/rutasur-backend/pkg/logger"
	"github.com/rutasur/rutasur-backend/pkg/metrics"
	"github.com/rutasur/rutasur-backend/pkg/redis"
	"github.com/rutasur/rutasur-backend/pkg/stripe"
)

type RouterParams struct {
	Config            *config.Config
	Logger            *logger.Logger
	DB                db.Pinger
	Redis             *redis.Client
	StripeClient      *stripe.Client
	ExcursionsService excursions.Service
	CheckoutService   checkout.Service
	PurchasesService  purchases.Service
	WebhookService    *stripewebhook.Service
	WebhookGuard      *stripewebhook.IdempotencyGuard
	WebhookMetrics    *metrics.WebhookMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var redisPinger redis.Pinger
	if p.Redis != nil {
		redisPinger = p.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, redisPinger))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.WebhookService, p.StripeClient, p.WebhookGuard, p.WebhookMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/excursions", func(r chi.Router) {
			r.Get("/", controllers.ExcursionList(p.ExcursionsService, logg))
			r.Get("/{excursionId}", controllers.ExcursionDetail(p.ExcursionsService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/checkout", controllers.Checkout(p.CheckoutService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/excursions", func(r chi.Router) {
			r.Post("/", controllers.AdminExcursionCreate(p.ExcursionsService, logg))
			r.Patch("/{excursionId}", controllers.AdminExcursionUpdate(p.ExcursionsService, logg))
			r.Delete("/{excursionId}", controllers.AdminExcursionDelete(p.ExcursionsService, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", controllers.AdminPurchaseList(p.PurchasesService, logg))
			r.Get("/{purchaseId}", controllers.AdminPurchaseDetail(p.PurchasesService, logg))
			r.Patch("/{purchaseId}", controllers.AdminPurchaseUpdate(p.PurchasesService, logg))
			r.Delete("/{purchaseId}", controllers.AdminPurchaseDelete(p.PurchasesService, logg))
			r.Post("/{purchaseId}/payments", controllers.AdminPurchaseAddPayment(p.PurchasesService, logg))
			r.Post("/{purchaseId}/refund", controllers.AdminPurchaseRefund(p.PurchasesService, logg))
		})

		r.Delete("/payments/{paymentId}", controllers.AdminPaymentDelete(p.PurchasesService, logg))
	})

	return r
}
