package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/handlers"
)

func init() {
	Register(deps.RoleRegistry, registerRegistryViews)
	Register(deps.RoleAgent, registerManifest)
}

func registerRegistryViews(r chi.Router, d deps.Deps) {
	r.Get("/api/runners", handlers.Runners(d))
	r.Get("/api/routes", handlers.Routes(d))
	if d.Hub != nil {
		r.Get("/ws", handlers.Subscribe(d))
	}
}

func registerManifest(r chi.Router, d deps.Deps) {
	r.Get(d.ManifestPath, handlers.Manifest(d))
}
