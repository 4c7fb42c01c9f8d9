package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vikramrao-dev/tiffinbox-backend/api/controllers"
	"github.com/vikramrao-dev/tiffinbox-backend/api/middleware"
	"github.com/vikramrao-dev/tiffinbox-backend/internal/addressbook"
	"github.com/vikramrao-dev/tiffinbox-backend/internal/payments"
	"github.com/vikramrao-dev/tiffinbox-backend/internal/subscriptions"
	"github.com/vikramrao-dev/tiffinbox-backend/internal/users"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/config"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/logger"
	pkgredis "github.com/vikramrao-dev/tiffinbox-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       pkgredis.IdempotencyStore
	Registry    *prometheus.Registry
	Users       users.Service
	AddressBook addressbook.Service
	Ledger      subscriptions.Service
	Payments    payments.Service
}

// NewRouter assembles the chi router with the full middleware chain.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, logg))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	idempotent := middleware.Idempotency(p.Redis, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(idempotent).Post("/register", controllers.AuthRegister(p.Users, logg))
		r.Post("/login", controllers.AuthLogin(p.Users, logg))
	})

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		// Purchase surface: open to guests, enriched when a valid token arrives.
		r.Route("/payment", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.With(idempotent).Post("/", controllers.CreatePayment(p.Payments, logg))
			r.With(idempotent).Post("/verify", controllers.VerifyPayment(p.Payments, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/", controllers.ListMySubscriptions(p.Ledger, logg))
			r.Get("/{id}", controllers.GetSubscription(p.Ledger, logg))
			r.With(idempotent).Post("/{id}/cancel", controllers.CancelSubscription(p.Ledger, logg))
		})
	})

	r.Route("/api/v1/delivery-details", func(r chi.Router) {
		r.With(middleware.OptionalAuth(cfg.JWT, logg)).Post("/", controllers.CreateDeliveryDetails(p.AddressBook, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/", controllers.ListDeliveryDetails(p.AddressBook, logg))
			r.Get("/{id}", controllers.GetDeliveryDetails(p.AddressBook, logg))
			r.Put("/{id}", controllers.UpdateDeliveryDetails(p.AddressBook, logg))
			r.Delete("/{id}", controllers.DeleteDeliveryDetails(p.AddressBook, logg))
			r.Post("/{id}/default", controllers.SetDefaultDeliveryDetails(p.AddressBook, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me", controllers.GetMe(p.Users, logg))
		r.Put("/me", controllers.UpdateMe(p.Users, logg))
	})

	r.Route("/api/admin/v1/subscriptions", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Get("/", controllers.AdminListSubscriptions(p.Ledger, logg))
		r.Post("/{id}/complete", controllers.AdminCompleteSubscription(p.Ledger, logg))
		r.Delete("/{id}", controllers.AdminDeleteSubscription(p.Ledger, logg))
	})

	return r
}
