// Package compiler turns node manifests into a routing configuration.
package compiler

import (
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
)

// Options control how backend targets are built.
type Options struct {
	Scheme string // default "http"
	Port   int    // default 80
}

// Compile builds the routing configuration for the given manifests. The
// result depends only on the set of manifests, not on their order. When two
// services map to the same route key, the manifest that sorts last by
// (node name, address) wins.
func Compile(manifests []domain.Manifest, opts Options) domain.RoutingConfig {
	if opts.Scheme == "" {
		opts.Scheme = "http"
	}
	if opts.Port == 0 {
		opts.Port = 80
	}

	ordered := make([]domain.Manifest, len(manifests))
	copy(ordered, manifests)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].NodeName != ordered[j].NodeName {
			return ordered[i].NodeName < ordered[j].NodeName
		}
		return ordered[i].Address < ordered[j].Address
	})

	cfg := domain.NewRoutingConfig()
	for _, m := range ordered {
		target := Target(opts.Scheme, m.Address, opts.Port)
		for _, svc := range m.Services {
			key := domain.RouteKey{Service: svc.Name, Node: m.NodeName}.String()
			cfg.Routers[key] = domain.RouteRule{
				Rule:    domain.HostRule(svc.FullDomain),
				Backend: key,
				Host:    svc.FullDomain,
				Node:    m.NodeName,
			}
			cfg.Backends[key] = domain.BackendDefinition{Targets: []string{target}}
		}
	}
	return cfg
}

// Target returns the backend URL for a node address.
func Target(scheme, address string, port int) string {
	return fmt.Sprintf("%s://%s:%d", scheme, domain.HostOf(address), port)
}
