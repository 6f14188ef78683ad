package domain

import "encoding/json"

// ServiceStatus is the coarse runtime state of the container behind a service.
type ServiceStatus string

const (
	StatusRunning ServiceStatus = "running"
	StatusOther   ServiceStatus = "other"
)

// ParseServiceStatus maps any runtime state string onto the two known values.
func ParseServiceStatus(s string) ServiceStatus {
	if s == string(StatusRunning) {
		return StatusRunning
	}
	return StatusOther
}

// UnmarshalJSON folds any runtime state reported by an agent onto the two
// known values.
func (s *ServiceStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseServiceStatus(raw)
	return nil
}

// ServiceRecord is one routable service discovered on a node.
//
// Records are rebuilt from container state on every inspection cycle and
// are never mutated after they have been placed in a Manifest.
type ServiceRecord struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// Name comes from the service-name label of the container.
	// It is unique within one Manifest.
	Name string `json:"name"`

	// ContainerRef is the runtime name of the container.
	// Example: demo-app-frontend-1
	ContainerRef string `json:"container"`

	// ─────────────────────────────
	// Routing
	// ─────────────────────────────

	// FullDomain is the fully-qualified hostname the proxy matches on.
	// Example: web.staging.example.com
	FullDomain string `json:"fullDomain"`

	// ─────────────────────────────
	// Observation
	// ─────────────────────────────

	Status ServiceStatus `json:"status"`
}
