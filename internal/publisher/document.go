package publisher

import (
	"github.com/MrSnakeDoc/switchyard/internal/domain"
)

// Document is the proxy's dynamic configuration, in the shape read by
// Traefik's file and HTTP providers.
type Document struct {
	HTTP HTTPConfig `yaml:"http" json:"http"`
}

type HTTPConfig struct {
	Routers  map[string]Router  `yaml:"routers" json:"routers"`
	Services map[string]Service `yaml:"services" json:"services"`
}

type Router struct {
	Rule        string   `yaml:"rule" json:"rule"`
	Service     string   `yaml:"service" json:"service"`
	EntryPoints []string `yaml:"entryPoints,omitempty" json:"entryPoints,omitempty"`
}

type Service struct {
	LoadBalancer LoadBalancer `yaml:"loadBalancer" json:"loadBalancer"`
}

type LoadBalancer struct {
	Servers []Server `yaml:"servers" json:"servers"`
}

type Server struct {
	URL string `yaml:"url" json:"url"`
}

// Render converts a routing configuration into a proxy document.
func Render(cfg domain.RoutingConfig, entryPoints []string) Document {
	doc := Document{HTTP: HTTPConfig{
		Routers:  make(map[string]Router, len(cfg.Routers)),
		Services: make(map[string]Service, len(cfg.Backends)),
	}}

	for key, r := range cfg.Routers {
		doc.HTTP.Routers[key] = Router{
			Rule:        r.Rule,
			Service:     r.Backend,
			EntryPoints: append([]string(nil), entryPoints...),
		}
	}
	for key, b := range cfg.Backends {
		servers := make([]Server, 0, len(b.Targets))
		for _, t := range b.Targets {
			servers = append(servers, Server{URL: t})
		}
		doc.HTTP.Services[key] = Service{LoadBalancer: LoadBalancer{Servers: servers}}
	}
	return doc
}
