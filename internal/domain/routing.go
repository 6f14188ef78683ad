package domain

import "fmt"

// RouteKey identifies one router/backend pair in a RoutingConfig.
// It combines service and node so equal service names on different nodes
// never collide.
type RouteKey struct {
	Service string
	Node    string
}

func (k RouteKey) String() string {
	return fmt.Sprintf("%s-%s", k.Service, k.Node)
}

// RouteRule matches requests by host and forwards them to a backend.
type RouteRule struct {
	// Rule is the proxy match expression, e.g. Host(`web.example.com`).
	Rule string `json:"rule"`
	// Backend is the key of the backend in the same RoutingConfig.
	Backend string `json:"backend"`
	// Host is the hostname the rule matches.
	Host string `json:"host"`
	// Node is the node the service runs on.
	Node string `json:"node"`
}

// BackendDefinition lists the forward targets for a router.
type BackendDefinition struct {
	// Targets are scheme://host:port strings.
	Targets []string `json:"targets"`
}

// RoutingConfig is the declarative document consumed by the reverse proxy.
// Every key of Routers has exactly one matching key in Backends.
type RoutingConfig struct {
	Routers  map[string]RouteRule         `json:"routers"`
	Backends map[string]BackendDefinition `json:"backends"`
}

// NewRoutingConfig returns an empty configuration.
func NewRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Routers:  make(map[string]RouteRule),
		Backends: make(map[string]BackendDefinition),
	}
}

// Len returns the number of routes.
func (c RoutingConfig) Len() int {
	return len(c.Routers)
}
