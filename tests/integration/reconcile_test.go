package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/switchyard/internal/compiler"
	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/fetcher"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver"
	"github.com/MrSnakeDoc/switchyard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/switchyard/internal/inspector"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/notify"
	"github.com/MrSnakeDoc/switchyard/internal/publisher"
	"github.com/MrSnakeDoc/switchyard/internal/scheduler"
	"github.com/MrSnakeDoc/switchyard/internal/snapshot"
	"github.com/MrSnakeDoc/switchyard/internal/store/endpoints"
)

type fakeRuntime []inspector.Container

func (f fakeRuntime) RunningContainers(context.Context) ([]inspector.Container, error) {
	return f, nil
}

func service(name string, labels map[string]string) inspector.Container {
	l := map[string]string{
		inspector.LabelServiceName: name,
		inspector.LabelServiceType: inspector.EntryPointType,
	}
	for k, v := range labels {
		l[k] = v
	}
	return inspector.Container{ID: name + "-id", Name: name + "-1", State: "running", Labels: l}
}

// startAgent runs one inspection and serves the resulting manifest the way
// a node agent does.
func startAgent(t *testing.T, node string, rt inspector.Runtime) *httptest.Server {
	t.Helper()
	log := logger.New("error", false)

	slot := snapshot.New[domain.Manifest]()
	cycle := &scheduler.AgentCycle{
		Inspector: inspector.New(rt, node, "example.com", log),
		Slot:      slot,
		Logger:    log,
	}
	require.NoError(t, cycle.Run(context.Background()))

	srv := httptest.NewServer(httpserver.NewRouter(log, deps.Deps{
		Role:         deps.RoleAgent,
		Logger:       log,
		NodeName:     node,
		DomainBase:   "example.com",
		ManifestPath: "/runner-info/json",
		Manifest:     slot,
	}))
	t.Cleanup(srv.Close)
	return srv
}

type traefikFile struct {
	HTTP struct {
		Routers map[string]struct {
			Rule        string   `yaml:"rule"`
			Service     string   `yaml:"service"`
			EntryPoints []string `yaml:"entryPoints"`
		} `yaml:"routers"`
		Services map[string]struct {
			LoadBalancer struct {
				Servers []struct {
					URL string `yaml:"url"`
				} `yaml:"servers"`
			} `yaml:"loadBalancer"`
		} `yaml:"services"`
	} `yaml:"http"`
}

func readRoutes(t *testing.T, path string) traefikFile {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc traefikFile
	require.NoError(t, yaml.Unmarshal(data, &doc))
	return doc
}

func TestReconciliationEndToEnd(t *testing.T) {
	log := logger.New("error", false)
	dir := t.TempDir()
	output := filepath.Join(dir, "output", "services.yml")

	staging := startAgent(t, "staging", fakeRuntime{
		service("web", nil),
		service("shop", map[string]string{"traefik.http.routers.shop.rule": "Host(`shop.example.org`)"}),
	})
	prod := startAgent(t, "prod", fakeRuntime{service("web", nil)})

	// a node that accepts connections but never answers
	hanging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(hanging.Close)

	store, err := endpoints.Open(filepath.Join(dir, "endpoints.yaml"), nil, log)
	require.NoError(t, err)
	_, err = store.Add(staging.URL, "staging")
	require.NoError(t, err)
	prodEP, err := store.Add(prod.URL, "prod")
	require.NoError(t, err)
	_, err = store.Add(hanging.URL, "hanging")
	require.NoError(t, err)

	recorder := &eventRecorder{}
	state := snapshot.New[domain.RegistryState]()
	cycle := &scheduler.RegistryCycle{
		Endpoints: store,
		Fetcher: fetcher.New(nil, fetcher.Options{
			ManifestPath: "/runner-info/json",
			Timeout:      300 * time.Millisecond,
			Concurrency:  4,
		}, log),
		Compile:   compiler.Options{Scheme: "http", Port: 80},
		Publisher: publisher.New([]string{"websecure", "web"}, log, publisher.NewFileSink(output)),
		Notifier:  notify.NewFanout(log, recorder),
		Slot:      state,
		Logger:    log,
	}

	require.NoError(t, cycle.Run(context.Background()))

	doc := readRoutes(t, output)
	require.Len(t, doc.HTTP.Routers, 3)
	assert.Equal(t, "Host(`web.staging.example.com`)", doc.HTTP.Routers["web-staging"].Rule)
	assert.Equal(t, "Host(`web.prod.example.com`)", doc.HTTP.Routers["web-prod"].Rule)
	assert.Equal(t, "Host(`shop.example.org`)", doc.HTTP.Routers["shop-staging"].Rule)
	assert.Equal(t, []string{"websecure", "web"}, doc.HTTP.Routers["web-prod"].EntryPoints)
	assert.Len(t, doc.HTTP.Services, 3)
	assert.Equal(t, "http://127.0.0.1:80", doc.HTTP.Services["web-prod"].LoadBalancer.Servers[0].URL)

	st := state.Load()
	require.NotNil(t, st)
	assert.Len(t, st.Runners, 2)
	require.Len(t, st.Sources, 3)
	assert.False(t, st.Sources[2].OK)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, 3, recorder.events[0].AffectedCount)

	// republishing an unchanged fleet writes the same bytes
	before, err := os.ReadFile(output)
	require.NoError(t, err)
	require.NoError(t, cycle.Run(context.Background()))
	after, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	// removing a node removes its routes on the next cycle
	require.NoError(t, store.Delete(prodEP.ID))
	require.NoError(t, cycle.Run(context.Background()))

	doc = readRoutes(t, output)
	assert.Len(t, doc.HTTP.Routers, 2)
	assert.NotContains(t, doc.HTTP.Routers, "web-prod")
	assert.NotContains(t, doc.HTTP.Services, "web-prod")
}

type eventRecorder struct {
	events []notify.Event
}

func (r *eventRecorder) Name() string { return "recorder" }

func (r *eventRecorder) Notify(_ context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return nil
}
