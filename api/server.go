/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and routes for the
  ledger service.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards/dev tooling

ROUTES:
  /v1/redeem/*   Redemption RPCs
  /v1/balance    Balance query
  /healthz       Liveness
  /metrics       Prometheus

SECURITY NOTE:
  No authentication middleware. The reference deployment sits behind
  an authenticating gateway that injects the device identity.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/ledgerd/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a router with all ledger routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/redeem", func(r chi.Router) {
			r.Post("/signed", h.RedeemSigned)
			r.Post("/receipt", h.RedeemReceipt)
		})
		r.Get("/balance", h.Balance)
	})

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
