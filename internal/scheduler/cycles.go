package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/compiler"
	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/fetcher"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/metrics"
	"github.com/MrSnakeDoc/switchyard/internal/notify"
	"github.com/MrSnakeDoc/switchyard/internal/publisher"
	"github.com/MrSnakeDoc/switchyard/internal/snapshot"
)

// Loop names, also used as metric labels.
const (
	RegistryLoop = "registry"
	AgentLoop    = "agent"
)

type EndpointLister interface {
	List() []domain.Endpoint
}

type ManifestFetcher interface {
	FetchAll(ctx context.Context, endpoints []domain.Endpoint) fetcher.Report
}

type RoutePublisher interface {
	Publish(ctx context.Context, cfg domain.RoutingConfig) publisher.Result
}

type ChangeNotifier interface {
	Notify(ctx context.Context, ev notify.Event) int
}

type NodeInspector interface {
	Inspect(ctx context.Context) domain.Manifest
}

// RegistryCycle fetches every endpoint, compiles the routes and publishes
// them. The resulting state is stored in the slot for HTTP readers.
type RegistryCycle struct {
	Endpoints EndpointLister
	Fetcher   ManifestFetcher
	Compile   compiler.Options
	Publisher RoutePublisher
	Notifier  ChangeNotifier // optional
	Slot      *snapshot.Slot[domain.RegistryState]
	Logger    logger.Logger

	cycle uint64
}

// Run performs one cycle. Individual failures (an unreachable node, a
// broken sink) are logged by the components and never abort the cycle.
func (c *RegistryCycle) Run(ctx context.Context) error {
	c.cycle++

	endpoints := c.Endpoints.List()
	metrics.SetEndpoints(len(endpoints))

	report := c.Fetcher.FetchAll(ctx, endpoints)
	routing := compiler.Compile(report.Manifests, c.Compile)
	result := c.Publisher.Publish(ctx, routing)

	state := &domain.RegistryState{
		Cycle:     c.cycle,
		Runners:   report.Manifests,
		Sources:   report.Sources,
		Routing:   routing,
		UpdatedAt: time.Now().UTC(),
	}
	c.Slot.Store(state)
	metrics.SetRoutes(routing.Len())

	c.Logger.Info("registry cycle completed",
		logger.Uint64("cycle", c.cycle),
		logger.Int("endpoints", len(endpoints)),
		logger.Int("runners", len(report.Manifests)),
		logger.Int("routes", routing.Len()),
		logger.Bool("published", result.OK()))

	if c.Notifier != nil {
		c.Notifier.Notify(ctx, notify.NewEvent(notify.SourceCycle, routing.Len()))
	}
	return nil
}

// AgentCycle inspects the local node and stores its manifest.
type AgentCycle struct {
	Inspector NodeInspector
	Slot      *snapshot.Slot[domain.Manifest]
	Logger    logger.Logger
}

func (c *AgentCycle) Run(ctx context.Context) error {
	m := c.Inspector.Inspect(ctx)
	c.Slot.Store(&m)
	metrics.SetServices(len(m.Services))

	c.Logger.Debug("node manifest updated",
		logger.String("runner", m.NodeName),
		logger.Int("services", len(m.Services)))
	return nil
}
