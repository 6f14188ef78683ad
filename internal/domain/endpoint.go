package domain

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Endpoint is a discovery target polled by the registry.
//
// ID is assigned on creation and never changes; Address and Label are
// editable.
type Endpoint struct {
	ID      string `json:"id" yaml:"id"`
	Address string `json:"address" yaml:"address"`
	Label   string `json:"label" yaml:"label"`
}

// NormalizeAddress trims an endpoint address and rejects empty input.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("address is required: %w", ErrValidation)
	}
	return address, nil
}

// ManifestURL builds the manifest URL for this endpoint.
// Addresses without a scheme are assumed to be plain http.
func (e Endpoint) ManifestURL(path string) string {
	base := strings.TrimRight(e.Address, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// HostOf returns the bare host of an endpoint address, dropping any scheme,
// port and path.
// Examples: "10.0.0.5" -> "10.0.0.5", "http://node-a:8080/x" -> "node-a"
func HostOf(address string) string {
	address = strings.TrimSpace(address)
	if strings.Contains(address, "://") {
		if u, err := url.Parse(address); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	if i := strings.IndexByte(address, '/'); i >= 0 {
		address = address[:i]
	}
	if h, _, err := net.SplitHostPort(address); err == nil {
		return h
	}
	return strings.Trim(address, "[]")
}
