package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	role deps.Role
	reg  Registrar
	mws  []Middleware
}

var registry []entry

// Register a registrar for the given roles with optional per-route
// middlewares.
func Register(role deps.Role, reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{role: role, reg: reg, mws: mws})
}

// RegisterAll mounts every registrar matching d.Role. Called once from
// server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if e.role&d.Role == 0 {
			continue
		}
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		sub := r.With(e.mws...)
		e.reg(sub, d)
	}
}
