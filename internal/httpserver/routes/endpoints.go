package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/mw"
)

func init() { Register(deps.RoleRegistry, registerEndpoints) }

func registerEndpoints(r chi.Router, d deps.Deps) {
	admin := []Middleware{
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:        d.AdminBurst,
			RefillPerMin: d.AdminRefill,
			MaxClients:   10000,
			TrustProxy:   d.TrustProxy,
		}),
	}

	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Route("/api/endpoints", func(r chi.Router) {
		r.Get("/", handlers.ListEndpoints(d))
		r.Get("/{id}", handlers.GetEndpoint(d))
		r.With(admin...).Post("/", handlers.CreateEndpoint(d))
		r.With(admin...).Put("/{id}", handlers.UpdateEndpoint(d))
		r.With(admin...).Delete("/{id}", handlers.DeleteEndpoint(d))
	})
}
