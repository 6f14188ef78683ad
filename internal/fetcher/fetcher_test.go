package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
)

const manifestPath = "/runner-info/json"

func agent(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != manifestPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hangingAgent(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func manifestJSON(runner, service string) string {
	return `{"runner":"` + runner + `","domain":"example.com","services":[` +
		`{"name":"` + service + `","fullDomain":"` + service + `.` + runner + `.example.com","container":"c1","status":"running"}` +
		`],"last_updated":"2025-03-01 12:00:00"}`
}

func newFetcher(opts Options) *Fetcher {
	if opts.ManifestPath == "" {
		opts.ManifestPath = manifestPath
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 4
	}
	return New(nil, opts, logger.New("error", false))
}

func TestFetchAllPartialFailure(t *testing.T) {
	a := agent(t, manifestJSON("node-a", "web"))
	slow := hangingAgent(t)
	b := agent(t, manifestJSON("node-b", "api"))

	eps := []domain.Endpoint{
		{ID: "1", Address: a.URL},
		{ID: "2", Address: slow.URL},
		{ID: "3", Address: b.URL},
	}

	f := newFetcher(Options{Timeout: 300 * time.Millisecond})
	start := time.Now()
	report := f.FetchAll(context.Background(), eps)
	elapsed := time.Since(start)

	require.Len(t, report.Manifests, 2)
	assert.Equal(t, "node-a", report.Manifests[0].NodeName)
	assert.Equal(t, a.URL, report.Manifests[0].Address)
	assert.Equal(t, "node-b", report.Manifests[1].NodeName)
	assert.Less(t, elapsed, 2*time.Second, "round is bounded by the per-endpoint timeout")

	require.Len(t, report.Sources, 3)
	assert.True(t, report.Sources[0].OK)
	assert.False(t, report.Sources[1].OK)
	assert.NotEmpty(t, report.Sources[1].Error)
	assert.Equal(t, 1, report.Sources[1].ConsecutiveFailures)
	assert.True(t, report.Sources[2].OK)
}

func TestFetchErrors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(notFound.Close)
	garbage := agent(t, `{"runner": "x", "services": [`)
	badTime := agent(t, `{"runner":"x","domain":"d","services":[],"last_updated":"yesterday"}`)
	empty := agent(t, `{}`)
	null := agent(t, `null`)

	f := newFetcher(Options{})

	tests := []struct {
		name    string
		address string
		want    error
	}{
		{"non 200", notFound.URL, domain.ErrSourceUnavailable},
		{"malformed json", garbage.URL, domain.ErrMalformedManifest},
		{"bad timestamp", badTime.URL, domain.ErrMalformedManifest},
		{"empty object", empty.URL, domain.ErrMalformedManifest},
		{"null body", null.URL, domain.ErrMalformedManifest},
		{"unreachable", "127.0.0.1:1", domain.ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), domain.Endpoint{ID: "x", Address: tt.address})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestFetchAllSkipsNamelessManifests(t *testing.T) {
	good := agent(t, manifestJSON("node-a", "web"))
	empty := agent(t, `{}`)
	null := agent(t, `null`)

	report := newFetcher(Options{}).FetchAll(context.Background(), []domain.Endpoint{
		{ID: "1", Address: good.URL},
		{ID: "2", Address: empty.URL},
		{ID: "3", Address: null.URL},
	})

	require.Len(t, report.Manifests, 1)
	assert.Equal(t, "node-a", report.Manifests[0].NodeName)
	require.Len(t, report.Sources, 3)
	assert.True(t, report.Sources[0].OK)
	assert.False(t, report.Sources[1].OK)
	assert.False(t, report.Sources[2].OK)
}

func TestFetchAllBoundedByBatches(t *testing.T) {
	const timeout = 150 * time.Millisecond
	var eps []domain.Endpoint
	for i := 0; i < 4; i++ {
		srv := hangingAgent(t)
		eps = append(eps, domain.Endpoint{ID: srv.URL, Address: srv.URL})
	}

	f := newFetcher(Options{Timeout: timeout, Concurrency: 2})
	start := time.Now()
	report := f.FetchAll(context.Background(), eps)
	elapsed := time.Since(start)

	assert.Empty(t, report.Manifests)
	// 4 endpoints, 2 at a time: two batches of one timeout each
	assert.GreaterOrEqual(t, elapsed, 2*timeout)
	assert.Less(t, elapsed, 2*timeout+time.Second)
}

func TestFetchDecodesManifest(t *testing.T) {
	a := agent(t, `{"runner":"n1","domain":"example.com","services":null,"last_updated":null}`)

	m, err := newFetcher(Options{}).Fetch(context.Background(), domain.Endpoint{ID: "1", Address: a.URL})

	require.NoError(t, err)
	assert.Equal(t, "n1", m.NodeName)
	assert.NotNil(t, m.Services)
	assert.True(t, m.GeneratedAt.IsZero())
	assert.Equal(t, a.URL, m.Address)
}

func TestFetchAllEvictsByDefault(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(manifestJSON("n1", "web")))
	}))
	t.Cleanup(srv.Close)

	eps := []domain.Endpoint{{ID: "1", Address: srv.URL}}
	f := newFetcher(Options{})

	require.Len(t, f.FetchAll(context.Background(), eps).Manifests, 1)

	down.Store(true)
	report := f.FetchAll(context.Background(), eps)
	assert.Empty(t, report.Manifests)
	assert.False(t, report.Sources[0].Retained)
}

func TestFetchAllRetainsLastGood(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(manifestJSON("n1", "web")))
	}))
	t.Cleanup(srv.Close)

	eps := []domain.Endpoint{{ID: "1", Address: srv.URL}}
	f := newFetcher(Options{RetainFailures: 2})

	require.Len(t, f.FetchAll(context.Background(), eps).Manifests, 1)
	down.Store(true)

	for i := 1; i <= 2; i++ {
		report := f.FetchAll(context.Background(), eps)
		require.Len(t, report.Manifests, 1, "failure %d", i)
		assert.True(t, report.Sources[0].Retained)
		assert.Equal(t, i, report.Sources[0].ConsecutiveFailures)
	}

	report := f.FetchAll(context.Background(), eps)
	assert.Empty(t, report.Manifests)
	assert.Equal(t, 3, report.Sources[0].ConsecutiveFailures)

	down.Store(false)
	report = f.FetchAll(context.Background(), eps)
	require.Len(t, report.Manifests, 1)
	assert.Equal(t, 0, report.Sources[0].ConsecutiveFailures)
}

func TestFetchAllEmpty(t *testing.T) {
	report := newFetcher(Options{}).FetchAll(context.Background(), nil)
	assert.Empty(t, report.Manifests)
	assert.Empty(t, report.Sources)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate([]byte("abc"), 5))
	assert.Equal(t, "ab...", truncate([]byte("abcdef"), 2))
}
