package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mateoquintana/mercaderia-backend/api/controllers"
	"github.com/mateoquintana/mercaderia-backend/api/middleware"
	"github.com/mateoquintana/mercaderia-backend/internal/orders"
	"github.com/mateoquintana/mercaderia-backend/internal/payments"
	"github.com/mateoquintana/mercaderia-backend/internal/payouts"
	"github.com/mateoquintana/mercaderia-backend/pkg/config"
	"github.com/mateoquintana/mercaderia-backend/pkg/db"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
	"github.com/mateoquintana/mercaderia-backend/pkg/redis"
)

// Deps collects everything the router mounts.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *db.Client
	Redis        *redis.Client
	Orders       orders.Service
	Payments     payments.Service
	Payouts      payouts.Service
	PromGatherer prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps(d)))
	})

	if d.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.PromGatherer, promhttp.HandlerOpts{}))
	}

	// Gateway callbacks authenticate by signature, not bearer token.
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/confirm", controllers.ConfirmPayment(d.Payments, logg))
		r.Post("/fail", controllers.FailPayment(d.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleBuyer, logg))
			r.Post("/", controllers.CreateOrder(d.Orders, logg))
			r.Get("/", controllers.ListMyOrders(d.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(d.Orders, logg))
			r.Patch("/{orderID}/cancel", controllers.CancelOrder(d.Orders, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleVendor, logg))
			r.Use(middleware.RequireVendorContext(logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListVendorOrders(d.Orders, logg))
				r.Get("/{orderID}", controllers.GetOrder(d.Orders, logg))
				r.Patch("/{orderID}/status", controllers.UpdateVendorOrderStatus(d.Orders, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListAllOrders(d.Orders, logg))
				r.Get("/{orderID}", controllers.GetOrder(d.Orders, logg))
				r.Patch("/{orderID}/status", controllers.UpdateAdminOrderStatus(d.Orders, logg))
			})
			r.Route("/payouts", func(r chi.Router) {
				r.Get("/summary", controllers.VendorSalesSummary(d.Payouts, logg))
				r.Post("/", controllers.RecordVendorPayout(d.Payouts, logg))
			})
		})
	})

	return r
}

func readyDeps(d Deps) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if d.DB != nil {
		deps["database"] = d.DB
	}
	if d.Redis != nil {
		deps["redis"] = d.Redis
	}
	return deps
}
