package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz reports ready once the first reconciliation cycle has completed.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := false
		switch {
		case d.Role&deps.RoleRegistry != 0 && d.Registry != nil:
			ready = d.Registry.Ready()
		case d.Role&deps.RoleAgent != 0 && d.Manifest != nil:
			ready = d.Manifest.Ready()
		}

		w.Header().Set("Content-Type", "application/json")
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(readyzResponse{Ready: ready})
	}
}
