package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
)

const infraProbeTimeout = 2 * time.Second

type componentStatus struct {
	OK         bool     `json:"ok"`
	Count      *int     `json:"count,omitempty"`
	LastUpdate string   `json:"last_update,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Channels   []string `json:"channels,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := make(map[string]componentStatus)

		if d.Role&deps.RoleRegistry != 0 {
			components["endpoints"] = endpointsStatus(d)
			components["reconciler"] = registryLoopStatus(d)
			components["publisher"] = componentStatus{OK: len(d.Sinks) > 0, Channels: d.Sinks}
			components["notifier"] = notifierStatus(d)
			if d.RedisClient != nil {
				components["redis"] = checkRedis(r.Context(), d)
			}
			if d.NATS != nil {
				components["nats"] = componentStatus{OK: d.NATS.Connected()}
			}
		}
		if d.Role&deps.RoleAgent != 0 {
			components["inspector"] = agentLoopStatus(d)
			components["runtime"] = checkRuntime(r.Context(), d)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

// overallStatus is "critical" when the loop has not produced anything yet,
// "degraded" when any other component is down.
func overallStatus(components map[string]componentStatus) string {
	for _, name := range []string{"reconciler", "inspector"} {
		if c, ok := components[name]; ok && !c.OK {
			return "critical"
		}
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func endpointsStatus(d deps.Deps) componentStatus {
	if d.Endpoints == nil {
		return componentStatus{OK: false, Error: "store not initialized"}
	}
	n := len(d.Endpoints.List())
	return componentStatus{OK: true, Count: &n}
}

func registryLoopStatus(d deps.Deps) componentStatus {
	if d.Registry == nil {
		return componentStatus{OK: false, Error: "not initialized"}
	}
	st := d.Registry.Load()
	if st == nil {
		return componentStatus{OK: false, LastUpdate: "never"}
	}
	n := st.Routing.Len()
	return componentStatus{OK: true, Count: &n, LastUpdate: st.UpdatedAt.Format(time.RFC3339)}
}

func agentLoopStatus(d deps.Deps) componentStatus {
	if d.Manifest == nil {
		return componentStatus{OK: false, Error: "not initialized"}
	}
	m := d.Manifest.Load()
	if m == nil {
		return componentStatus{OK: false, LastUpdate: "never"}
	}
	n := len(m.Services)
	return componentStatus{OK: true, Count: &n, LastUpdate: d.Manifest.UpdatedAt().UTC().Format(time.RFC3339)}
}

func notifierStatus(d deps.Deps) componentStatus {
	st := componentStatus{OK: true, Channels: d.Notifications}
	if d.Hub != nil {
		n := d.Hub.Count()
		st.Count = &n
	}
	return st
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, infraProbeTimeout)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: "notifications-degraded", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}

func checkRuntime(ctx context.Context, d deps.Deps) componentStatus {
	if d.Runtime == nil {
		return componentStatus{OK: false, Error: "client not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, infraProbeTimeout)
	defer cancel()

	if err := d.Runtime.Ping(ctx); err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	return componentStatus{OK: true}
}
