package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	Role          string  `json:"role"`
	Node          string  `json:"node,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

func roleName(r deps.Role) string {
	switch r {
	case deps.RoleRegistry:
		return "registry"
	case deps.RoleAgent:
		return "agent"
	default:
		return "combined"
	}
}

// Healthz answers as long as the process serves HTTP.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(healthzResponse{
			Status:        "ok",
			Role:          roleName(d.Role),
			Node:          d.NodeName,
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: d.Now().Sub(start).Seconds(),
		})
	}
}
