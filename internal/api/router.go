package api

import (
	"net/http"

	"github.com/keymint/keymint/internal/api/handler"
	"github.com/keymint/keymint/internal/api/middleware"
	"github.com/keymint/keymint/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(svc *service.LicenseService, adminToken string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics (no auth required)
	r.Handle("/metrics", promhttp.Handler())

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(adminToken))

		// Redemption
		redeemHandler := handler.NewRedeemHandler(svc)
		r.Post("/redeem", redeemHandler.Redeem)

		// Keys
		keyHandler := handler.NewKeyHandler(svc)
		r.Post("/keys", keyHandler.Generate)
		r.Get("/keys/stats", keyHandler.Stats)
		r.Post("/keys/lookup", keyHandler.Lookup)

		// Redemption ledger
		redemptionHandler := handler.NewRedemptionHandler(svc)
		r.Get("/redemptions", redemptionHandler.Recent)

		// Products and their storefront links
		productHandler := handler.NewProductHandler(svc)
		r.Get("/products", productHandler.List)
		r.Route("/products/{name}", func(r chi.Router) {
			r.Put("/", productHandler.Upsert)
			r.Get("/", productHandler.Get)
			r.Delete("/", productHandler.Delete)

			r.Put("/delivery", productHandler.LinkDelivery)
			r.Get("/delivery", productHandler.GetDelivery)
			r.Post("/delivery/push", productHandler.PushDelivery)
		})

		// Tenant notification settings
		tenantHandler := handler.NewTenantHandler(svc)
		r.Put("/tenants/{tenant_id}/notifications", tenantHandler.SetNotifications)
		r.Get("/tenants/{tenant_id}/notifications", tenantHandler.GetNotifications)
	})

	return r
}
