package domain

import "time"

// SourceStatus is the outcome of polling one endpoint during a cycle.
type SourceStatus struct {
	Endpoint Endpoint `json:"endpoint"`
	URL      string   `json:"url"`
	OK       bool     `json:"ok"`
	// Retained is set when the manifest comes from an earlier cycle because
	// the endpoint failed this time.
	Retained            bool      `json:"retained,omitempty"`
	Services            int       `json:"services"`
	Error               string    `json:"error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CheckedAt           time.Time `json:"checked_at"`
}

// RegistryState is the immutable result of one registry cycle.
type RegistryState struct {
	Cycle     uint64         `json:"cycle"`
	Runners   []Manifest     `json:"runners"`
	Sources   []SourceStatus `json:"sources"`
	Routing   RoutingConfig  `json:"routing"`
	UpdatedAt time.Time      `json:"last_updated"`
}
