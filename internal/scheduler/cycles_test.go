package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/switchyard/internal/compiler"
	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/fetcher"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/notify"
	"github.com/MrSnakeDoc/switchyard/internal/publisher"
	"github.com/MrSnakeDoc/switchyard/internal/snapshot"
)

type staticEndpoints []domain.Endpoint

func (s staticEndpoints) List() []domain.Endpoint { return s }

type stubFetcher struct {
	manifests []domain.Manifest
	seen      []domain.Endpoint
}

func (f *stubFetcher) FetchAll(_ context.Context, eps []domain.Endpoint) fetcher.Report {
	f.seen = eps
	return fetcher.Report{Manifests: f.manifests}
}

type recordingPublisher struct {
	published []domain.RoutingConfig
}

func (p *recordingPublisher) Publish(_ context.Context, cfg domain.RoutingConfig) publisher.Result {
	p.published = append(p.published, cfg)
	return publisher.Result{}
}

type recordingNotifier struct {
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) int {
	n.events = append(n.events, ev)
	return 1
}

type stubInspector struct {
	manifest domain.Manifest
}

func (s stubInspector) Inspect(context.Context) domain.Manifest { return s.manifest }

func TestRegistryCycle(t *testing.T) {
	eps := staticEndpoints{{ID: "1", Address: "10.0.0.1"}, {ID: "2", Address: "10.0.0.2"}}
	f := &stubFetcher{manifests: []domain.Manifest{{
		NodeName: "n1",
		Address:  "10.0.0.1",
		Services: []domain.ServiceRecord{{Name: "web", FullDomain: "web.n1.example.com"}},
	}}}
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	slot := snapshot.New[domain.RegistryState]()

	c := &RegistryCycle{
		Endpoints: eps,
		Fetcher:   f,
		Compile:   compiler.Options{Scheme: "http", Port: 80},
		Publisher: pub,
		Notifier:  notifier,
		Slot:      slot,
		Logger:    logger.New("error", false),
	}

	require.NoError(t, c.Run(context.Background()))

	assert.Len(t, f.seen, 2)
	require.Len(t, pub.published, 1)
	assert.Contains(t, pub.published[0].Routers, "web-n1")

	state := slot.Load()
	require.NotNil(t, state)
	assert.Equal(t, uint64(1), state.Cycle)
	assert.Len(t, state.Runners, 1)
	assert.Equal(t, 1, state.Routing.Len())

	require.Len(t, notifier.events, 1)
	assert.Equal(t, 1, notifier.events[0].AffectedCount)
	assert.Equal(t, notify.SourceCycle, notifier.events[0].Source)

	// node disappears: the next cycle drops its routes
	f.manifests = nil
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, uint64(2), slot.Load().Cycle)
	assert.Equal(t, 0, slot.Load().Routing.Len())
	assert.Empty(t, pub.published[1].Routers)
}

func TestRegistryCycleWithoutNotifier(t *testing.T) {
	c := &RegistryCycle{
		Endpoints: staticEndpoints{},
		Fetcher:   &stubFetcher{},
		Publisher: &recordingPublisher{},
		Slot:      snapshot.New[domain.RegistryState](),
		Logger:    logger.New("error", false),
	}
	require.NoError(t, c.Run(context.Background()))
	assert.True(t, c.Slot.Ready())
}

func TestAgentCycle(t *testing.T) {
	slot := snapshot.New[domain.Manifest]()
	c := &AgentCycle{
		Inspector: stubInspector{manifest: domain.Manifest{
			NodeName: "staging",
			Services: []domain.ServiceRecord{{Name: "web"}},
		}},
		Slot:   slot,
		Logger: logger.New("error", false),
	}

	require.NoError(t, c.Run(context.Background()))

	m := slot.Load()
	require.NotNil(t, m)
	assert.Equal(t, "staging", m.NodeName)
	assert.Len(t, m.Services, 1)
}
