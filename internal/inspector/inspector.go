// Package inspector builds the node manifest from the containers running on
// the local host.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
)

// Labels a container must carry to be published.
const (
	LabelServiceName = "com.runner.service.name"
	LabelServiceType = "com.runner.service.type"
	EntryPointType   = "entry-point"

	// Any label whose key contains this fragment may hold a Host rule.
	ruleLabelFragment = "rule"
)

// Inspector turns running containers into a node manifest.
type Inspector struct {
	runtime    Runtime
	nodeName   string
	domainBase string
	logger     logger.Logger
	now        func() time.Time
}

// New creates an inspector for the given node.
func New(rt Runtime, nodeName, domainBase string, log logger.Logger) *Inspector {
	return &Inspector{
		runtime:    rt,
		nodeName:   nodeName,
		domainBase: domainBase,
		logger:     log,
		now:        time.Now,
	}
}

// Inspect lists running containers and returns the manifest for this node.
// A runtime failure is logged and yields a manifest with no services; a
// single unusable container is skipped.
func (in *Inspector) Inspect(ctx context.Context) domain.Manifest {
	containers, err := in.runtime.RunningContainers(ctx)
	if err != nil {
		in.logger.Error("container inspection failed",
			logger.Error(fmt.Errorf("%w: %v", domain.ErrRuntimeQuery, err)))
		return domain.NewManifest(in.nodeName, in.domainBase, nil, in.now())
	}

	records := make([]domain.ServiceRecord, 0, len(containers))
	for _, c := range containers {
		rec, ok := in.record(c)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	m := domain.NewManifest(in.nodeName, in.domainBase, records, in.now())
	in.logger.Debug("node inspected",
		logger.Int("containers", len(containers)),
		logger.Int("services", len(m.Services)))
	return m
}

// record maps one container, reporting false when it is not published.
func (in *Inspector) record(c Container) (domain.ServiceRecord, bool) {
	name := strings.TrimSpace(c.Labels[LabelServiceName])
	if name == "" {
		return domain.ServiceRecord{}, false
	}
	if c.Labels[LabelServiceType] != EntryPointType {
		return domain.ServiceRecord{}, false
	}

	ref := c.Name
	if ref == "" {
		ref = c.ID
	}

	return domain.ServiceRecord{
		Name:         name,
		ContainerRef: ref,
		FullDomain:   in.fullDomain(name, c),
		Status:       domain.ParseServiceStatus(c.State),
	}, true
}

// fullDomain returns the host of the first well-formed Host rule label,
// otherwise the domain built from service, node and base.
func (in *Inspector) fullDomain(service string, c Container) string {
	keys := make([]string, 0, len(c.Labels))
	for k := range c.Labels {
		if strings.Contains(k, ruleLabelFragment) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		host, err := domain.ParseHostRule(c.Labels[k])
		if err == nil {
			return host
		}
		if !errors.Is(err, domain.ErrNoHostRule) {
			in.logger.Warn("ignoring host rule",
				logger.String("container", c.Name),
				logger.String("label", k),
				logger.Error(err))
		}
	}
	return domain.FallbackDomain(service, in.nodeName, in.domainBase)
}
