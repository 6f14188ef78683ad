package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/publisher"
)

type runnersResponse struct {
	Cycle       uint64                `json:"cycle"`
	Runners     []domain.Manifest     `json:"runners"`
	Sources     []domain.SourceStatus `json:"sources"`
	Endpoints   []domain.Endpoint     `json:"endpoints"`
	LastUpdated *time.Time            `json:"last_updated"`
}

// Runners reports the manifests gathered by the last cycle.
func Runners(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := runnersResponse{
			Runners:   []domain.Manifest{},
			Sources:   []domain.SourceStatus{},
			Endpoints: d.Endpoints.List(),
		}
		if st := d.Registry.Load(); st != nil {
			resp.Cycle = st.Cycle
			resp.Runners = st.Runners
			resp.Sources = st.Sources
			at := st.UpdatedAt
			resp.LastUpdated = &at
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Routes returns the proxy document built from the last cycle.
func Routes(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := domain.NewRoutingConfig()
		if st := d.Registry.Load(); st != nil {
			cfg = st.Routing
		}

		var doc publisher.Document
		if d.Render != nil {
			doc = d.Render(cfg)
		} else {
			doc = publisher.Render(cfg, nil)
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// Manifest serves this node's manifest. Before the first inspection the
// manifest has no services and no timestamp.
func Manifest(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := domain.NewManifest(d.NodeName, d.DomainBase, nil, time.Time{})
		if cur := d.Manifest.Load(); cur != nil {
			m = *cur
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// Subscribe upgrades to a websocket receiving change events.
func Subscribe(d deps.Deps) http.HandlerFunc {
	return d.Hub.ServeHTTP
}
