package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_DURATION", "5s")
	t.Setenv("CFG_DURATION_BAD", "soon")
	t.Setenv("CFG_BOOL", "false")
	t.Setenv("CFG_BOOL_BAD", "maybe")
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_INT_BAD", "4x2")

	assert.Equal(t, 5*time.Second, mustDuration("CFG_DURATION", time.Second))
	assert.Equal(t, 10*time.Second, mustDuration("CFG_DURATION_BAD", 10*time.Second))
	assert.Equal(t, 15*time.Second, mustDuration("CFG_DURATION_UNSET", 15*time.Second))

	assert.False(t, mustBool("CFG_BOOL", true))
	assert.True(t, mustBool("CFG_BOOL_BAD", true))
	assert.True(t, mustBool("CFG_BOOL_UNSET", true))

	assert.Equal(t, 42, getenvInt("CFG_INT", 1))
	assert.Equal(t, 7, getenvInt("CFG_INT_BAD", 7))
	assert.Equal(t, "fallback", getenv("CFG_STRING_UNSET", "fallback"))
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("CFG_REQUIRED", "value")
	assert.Equal(t, "value", requireEnv("CFG_REQUIRED"))

	t.Setenv("CFG_REQUIRED", "")
	assert.Panics(t, func() { requireEnv("CFG_REQUIRED") })
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "10.0.0.5", want: []string{"10.0.0.5"}},
		{name: "spaces and quotes", input: ` "10.0.0.5" , '10.0.0.6',, `, want: []string{"10.0.0.5", "10.0.0.6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitAndTrim(tt.input))
		})
	}
}

func TestLoadRegistryDefaults(t *testing.T) {
	cfg := LoadRegistry()

	assert.Equal(t, ":5000", cfg.ListenPort)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "/runner-info/json", cfg.ManifestPath)
	assert.Equal(t, "http", cfg.BackendScheme)
	assert.Equal(t, 80, cfg.BackendPort)
	assert.Equal(t, []string{"websecure", "web"}, cfg.EntryPoints)
	assert.Zero(t, cfg.RetainFailures)
	assert.Empty(t, cfg.RedisAddr, "redis is opt-in")
	assert.Empty(t, cfg.NATSURL, "nats is opt-in")
}

func TestLoadRegistryOverrides(t *testing.T) {
	t.Setenv("SWITCHYARD_POLL_INTERVAL", "10s")
	t.Setenv("SWITCHYARD_SEED_ENDPOINTS", "192.168.3.215, 192.168.3.226")
	t.Setenv("SWITCHYARD_BACKEND_PORT", "8080")
	t.Setenv("SWITCHYARD_RETAIN_FAILURES", "3")

	cfg := LoadRegistry()

	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"192.168.3.215", "192.168.3.226"}, cfg.SeedEndpoints)
	assert.Equal(t, 8080, cfg.BackendPort)
	assert.Equal(t, 3, cfg.RetainFailures)
}

func TestLoadRegistryInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "no sink", env: map[string]string{"SWITCHYARD_OUTPUT_FILE": " "}},
		{name: "bad scheme", env: map[string]string{"SWITCHYARD_BACKEND_SCHEME": "ftp"}},
		{name: "bad port", env: map[string]string{"SWITCHYARD_BACKEND_PORT": "70000"}},
		{name: "negative retention", env: map[string]string{"SWITCHYARD_RETAIN_FAILURES": "-1"}},
		{name: "zero concurrency", env: map[string]string{"SWITCHYARD_FETCH_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.name == "no sink" {
				t.Setenv("SWITCHYARD_PROXY_API_URL", "")
			}

			assert.Panics(t, func() { LoadRegistry() })
		})
	}
}

func TestLoadAgent(t *testing.T) {
	t.Setenv("RUNNER", "staging")
	t.Setenv("DOMAIN_FULL", "preview.example.com")

	cfg := LoadAgent()

	assert.Equal(t, "staging", cfg.NodeName)
	assert.Equal(t, "preview.example.com", cfg.DomainBase)
	assert.Equal(t, ":80", cfg.ListenPort)
	assert.Equal(t, 30*time.Second, cfg.InspectInterval)
}

func TestLoadAgentRequiresRunner(t *testing.T) {
	t.Setenv("RUNNER", "")
	assert.Panics(t, func() { LoadAgent() })
}
