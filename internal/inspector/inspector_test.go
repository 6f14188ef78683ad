package inspector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
)

type fakeRuntime struct {
	containers []Container
	err        error
}

func (f fakeRuntime) RunningContainers(context.Context) ([]Container, error) {
	return f.containers, f.err
}

func entryPoint(name string, extra map[string]string) map[string]string {
	labels := map[string]string{
		LabelServiceName: name,
		LabelServiceType: EntryPointType,
	}
	for k, v := range extra {
		labels[k] = v
	}
	return labels
}

func newInspector(rt Runtime, node, base string) *Inspector {
	in := New(rt, node, base, logger.New("error", false))
	in.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return in
}

func TestInspectAllowList(t *testing.T) {
	rt := fakeRuntime{containers: []Container{
		{ID: "a1", Name: "web-1", State: "running", Labels: entryPoint("web", nil)},
		{ID: "b1", Name: "db-1", State: "running", Labels: map[string]string{
			LabelServiceName: "db",
			LabelServiceType: "internal",
		}},
		{ID: "c1", Name: "cache", State: "running", Labels: map[string]string{
			LabelServiceType: EntryPointType,
		}},
		{ID: "d1", Name: "blank", State: "running", Labels: entryPoint("  ", nil)},
		{ID: "e1", Name: "plain", State: "running"},
	}}

	m := newInspector(rt, "staging", "example.com").Inspect(context.Background())

	require.Len(t, m.Services, 1)
	assert.Equal(t, "web", m.Services[0].Name)
	assert.Equal(t, "web-1", m.Services[0].ContainerRef)
	assert.Equal(t, "staging", m.NodeName)
	assert.Equal(t, "example.com", m.DomainBase)
	assert.False(t, m.GeneratedAt.IsZero())
}

func TestInspectDomainFallback(t *testing.T) {
	rt := fakeRuntime{containers: []Container{
		{ID: "a1", Name: "web-1", State: "running", Labels: entryPoint("web", nil)},
	}}

	m := newInspector(rt, "staging", "example.com").Inspect(context.Background())

	require.Len(t, m.Services, 1)
	assert.Equal(t, "web.staging.example.com", m.Services[0].FullDomain)
}

func TestInspectHostRule(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string]string
		want   string
	}{
		{
			name:   "explicit rule",
			labels: map[string]string{"traefik.http.routers.web.rule": "Host(`shop.example.org`)"},
			want:   "shop.example.org",
		},
		{
			name:   "rule without host falls back",
			labels: map[string]string{"traefik.http.routers.web.rule": "PathPrefix(`/api`)"},
			want:   "web.staging.example.com",
		},
		{
			name:   "malformed rule falls back",
			labels: map[string]string{"traefik.http.routers.web.rule": "Host(shop.example.org)"},
			want:   "web.staging.example.com",
		},
		{
			name: "first well-formed rule in key order",
			labels: map[string]string{
				"b.rule": "Host(`second.example.org`)",
				"a.rule": "Host(`first.example.org`)",
			},
			want: "first.example.org",
		},
		{
			name: "skips malformed then uses next",
			labels: map[string]string{
				"a.rule": "Host(``)",
				"b.rule": "Host(`ok.example.org`)",
			},
			want: "ok.example.org",
		},
		{
			name:   "non rule label ignored",
			labels: map[string]string{"traefik.http.routers.web.entrypoints": "Host(`nope.example.org`)"},
			want:   "web.staging.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := fakeRuntime{containers: []Container{
				{ID: "a1", Name: "web-1", State: "running", Labels: entryPoint("web", tt.labels)},
			}}
			m := newInspector(rt, "staging", "example.com").Inspect(context.Background())
			require.Len(t, m.Services, 1)
			assert.Equal(t, tt.want, m.Services[0].FullDomain)
		})
	}
}

func TestInspectStatusAndOrdering(t *testing.T) {
	rt := fakeRuntime{containers: []Container{
		{ID: "z1", Name: "zeta", State: "restarting", Labels: entryPoint("zeta", nil)},
		{ID: "a1", Name: "alpha", State: "running", Labels: entryPoint("alpha", nil)},
		{ID: "a2", Name: "alpha-2", State: "running", Labels: entryPoint("alpha", nil)},
	}}

	m := newInspector(rt, "", "example.com").Inspect(context.Background())

	require.Len(t, m.Services, 2)
	assert.Equal(t, "alpha", m.Services[0].Name)
	assert.Equal(t, "alpha-2", m.Services[0].ContainerRef, "last seen wins")
	assert.Equal(t, domain.StatusRunning, m.Services[0].Status)
	assert.Equal(t, "alpha.example.com", m.Services[0].FullDomain)
	assert.Equal(t, "zeta", m.Services[1].Name)
	assert.Equal(t, domain.StatusOther, m.Services[1].Status)
}

func TestInspectContainerRefFallsBackToID(t *testing.T) {
	rt := fakeRuntime{containers: []Container{
		{ID: "abc123", State: "running", Labels: entryPoint("web", nil)},
	}}

	m := newInspector(rt, "n1", "example.com").Inspect(context.Background())

	require.Len(t, m.Services, 1)
	assert.Equal(t, "abc123", m.Services[0].ContainerRef)
}

func TestInspectRuntimeFailure(t *testing.T) {
	rt := fakeRuntime{err: errors.New("cannot connect to the docker daemon")}

	m := newInspector(rt, "staging", "example.com").Inspect(context.Background())

	assert.Empty(t, m.Services)
	assert.NotNil(t, m.Services)
	assert.Equal(t, "staging", m.NodeName)
}
