package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// legacyTimestampLayout is the layout older node agents used for last_updated.
const legacyTimestampLayout = "2006-01-02 15:04:05"

// Manifest is a node's self-reported list of routable services at a point
// in time. A new Manifest fully replaces the previous one.
type Manifest struct {
	NodeName    string
	DomainBase  string
	Services    []ServiceRecord
	GeneratedAt time.Time

	// Address is the endpoint address the manifest was fetched from.
	// Only the registry sets it; node agents leave it empty.
	Address string
}

// manifestWire is the JSON shape served by node agents.
type manifestWire struct {
	Runner      string          `json:"runner"`
	Domain      string          `json:"domain"`
	Services    []ServiceRecord `json:"services"`
	LastUpdated *string         `json:"last_updated"`
	Address     string          `json:"address,omitempty"`
}

func (m Manifest) MarshalJSON() ([]byte, error) {
	w := manifestWire{
		Runner:   m.NodeName,
		Domain:   m.DomainBase,
		Services: m.Services,
		Address:  m.Address,
	}
	if w.Services == nil {
		w.Services = []ServiceRecord{}
	}
	if !m.GeneratedAt.IsZero() {
		ts := m.GeneratedAt.UTC().Format(time.RFC3339)
		w.LastUpdated = &ts
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the agent payload. A null body or a payload
// without a runner name cannot be routed and is rejected as malformed.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: null body", ErrMalformedManifest)
	}
	var w manifestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Runner == "" {
		return fmt.Errorf("%w: missing runner", ErrMalformedManifest)
	}

	var generatedAt time.Time
	if w.LastUpdated != nil && *w.LastUpdated != "" {
		ts, err := parseTimestamp(*w.LastUpdated)
		if err != nil {
			return err
		}
		generatedAt = ts
	}

	*m = Manifest{
		NodeName:    w.Runner,
		DomainBase:  w.Domain,
		Services:    w.Services,
		GeneratedAt: generatedAt,
		Address:     w.Address,
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(legacyTimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_updated %q", s)
	}
	return ts, nil
}

// NewManifest builds a Manifest from records in discovery order.
// Later records replace earlier ones with the same name, and the result is
// sorted by name.
func NewManifest(nodeName, domainBase string, records []ServiceRecord, at time.Time) Manifest {
	byName := make(map[string]ServiceRecord, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}

	services := make([]ServiceRecord, 0, len(byName))
	for _, rec := range byName {
		services = append(services, rec)
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	return Manifest{
		NodeName:    nodeName,
		DomainBase:  domainBase,
		Services:    services,
		GeneratedAt: at,
	}
}
