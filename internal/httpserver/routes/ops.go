package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/mw"
	"github.com/MrSnakeDoc/switchyard/internal/metrics"
)

func init() { Register(deps.RoleAny, registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	ops := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	ops.Get("/healthz", handlers.Healthz(d))
	ops.Get("/readyz", handlers.Readyz(d))
	ops.Get("/infra", handlers.Infra(d))
	ops.Method("GET", "/metrics", metrics.Handler())
}
