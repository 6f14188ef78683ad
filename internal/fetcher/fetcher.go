// Package fetcher polls node agents for their manifests.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/metrics"
	"github.com/MrSnakeDoc/switchyard/internal/utils"
)

const (
	maxManifestBytes = 1 << 20
	maxLoggedPayload = 256
)

// Options tune how manifests are fetched.
type Options struct {
	ManifestPath   string        // ex: "/runner-info/json"
	Timeout        time.Duration // per endpoint
	Concurrency    int           // endpoints polled at once
	RetainFailures int           // keep the last good manifest for this many failed polls
}

// Report is the outcome of one polling round.
type Report struct {
	// Manifests holds successful (or retained) manifests in endpoint order.
	Manifests []domain.Manifest
	// Sources holds one status per polled endpoint, in endpoint order.
	Sources []domain.SourceStatus
}

// Fetcher retrieves manifests over HTTP. It remembers the last good
// manifest of every endpoint when retention is enabled.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger logger.Logger

	mu      sync.Mutex
	history map[string]*history
}

type history struct {
	last     *domain.Manifest
	failures int
}

// New creates a fetcher. A nil client gets a default one.
func New(client *http.Client, opts Options, log logger.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Fetcher{
		client:  client,
		opts:    opts,
		logger:  log,
		history: make(map[string]*history),
	}
}

// FetchAll polls every endpoint, at most Concurrency at once. Each endpoint
// gets its own timeout, so a round takes at most
// ceil(len(endpoints)/Concurrency) timeouts, and one timeout while the list
// fits in a single batch. Failures only remove the failing endpoint from
// the report.
func (f *Fetcher) FetchAll(ctx context.Context, endpoints []domain.Endpoint) Report {
	type outcome struct {
		manifest domain.Manifest
		err      error
		at       time.Time
	}

	results := make([]outcome, len(endpoints))
	sem := make(chan struct{}, f.opts.Concurrency)
	var wg sync.WaitGroup

	for i, ep := range endpoints {
		wg.Add(1)
		go func(i int, ep domain.Endpoint) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = outcome{err: fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, ctx.Err()), at: time.Now()}
				return
			}
			defer func() { <-sem }()

			m, err := f.Fetch(ctx, ep)
			results[i] = outcome{manifest: m, err: err, at: time.Now()}
		}(i, ep)
	}
	wg.Wait()

	report := Report{
		Manifests: make([]domain.Manifest, 0, len(endpoints)),
		Sources:   make([]domain.SourceStatus, 0, len(endpoints)),
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]bool, len(endpoints))
	for i, ep := range endpoints {
		seen[ep.ID] = true
		res := results[i]
		status := domain.SourceStatus{
			Endpoint:  ep,
			URL:       ep.ManifestURL(f.opts.ManifestPath),
			CheckedAt: res.at,
		}

		h := f.history[ep.ID]
		if h == nil {
			h = &history{}
			f.history[ep.ID] = h
		}

		if res.err == nil {
			h.failures = 0
			if f.opts.RetainFailures > 0 {
				m := res.manifest
				h.last = &m
			}
			status.OK = true
			status.Services = len(res.manifest.Services)
			report.Manifests = append(report.Manifests, res.manifest)
			report.Sources = append(report.Sources, status)
			metrics.FetchResult("ok")
			continue
		}

		h.failures++
		status.Error = res.err.Error()
		status.ConsecutiveFailures = h.failures

		if h.last != nil && h.failures <= f.opts.RetainFailures {
			status.Retained = true
			status.Services = len(h.last.Services)
			report.Manifests = append(report.Manifests, *h.last)
			f.logger.Warn("endpoint unavailable, keeping last manifest",
				logger.String("endpoint", ep.Address),
				logger.Int("failures", h.failures),
				logger.Error(res.err))
			metrics.FetchResult("retained")
		} else {
			h.last = nil
			f.logger.Warn("endpoint skipped",
				logger.String("endpoint", ep.Address),
				logger.Int("failures", h.failures),
				logger.Error(res.err))
			if errors.Is(res.err, domain.ErrMalformedManifest) {
				metrics.FetchResult("malformed")
			} else {
				metrics.FetchResult("unavailable")
			}
		}
		report.Sources = append(report.Sources, status)
	}

	// forget endpoints that were removed from the store
	for id := range f.history {
		if !seen[id] {
			delete(f.history, id)
		}
	}

	return report
}

// Fetch retrieves and decodes one endpoint's manifest. The returned
// manifest is tagged with the endpoint address.
func (f *Fetcher) Fetch(ctx context.Context, ep domain.Endpoint) (domain.Manifest, error) {
	url := ep.ManifestURL(f.opts.ManifestPath)

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer utils.DrainAndClose(resp.Body, maxManifestBytes)

	if resp.StatusCode != http.StatusOK {
		return domain.Manifest{}, fmt.Errorf("%w: %s returned %d", domain.ErrSourceUnavailable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: failed to read body: %v", domain.ErrSourceUnavailable, err)
	}

	var m domain.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		f.logger.Warn("malformed manifest",
			logger.String("endpoint", ep.Address),
			logger.String("payload", truncate(body, maxLoggedPayload)))
		return domain.Manifest{}, fmt.Errorf("%w: %v", domain.ErrMalformedManifest, err)
	}
	if m.Services == nil {
		m.Services = []domain.ServiceRecord{}
	}
	m.Address = ep.Address
	return m, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
