package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server holds settings shared by the registry and the node agent.
type Server struct {
	ListenPort      string        // ex: ":5000"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ManifestPath string // path of the node manifest, ex: "/runner-info/json"

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict ops routes to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

// Registry configures the central registry process.
type Registry struct {
	Server

	EndpointsFile  string        // path of the persisted endpoint list
	SeedEndpoints  []string      // addresses used when the endpoint file does not exist yet
	WatchEndpoints bool          // reload the endpoint file on external edits
	PollInterval   time.Duration // reconciliation interval (default: 30s)

	FetchTimeout     time.Duration // per-endpoint manifest timeout (default: 5s)
	FetchConcurrency int           // max endpoints polled at once (default: 8)
	RetainFailures   int           // keep last good manifest for N failed polls (0 = evict immediately)

	BackendScheme string   // scheme of backend targets (default: http)
	BackendPort   int      // port of backend targets (default: 80)
	EntryPoints   []string // proxy entry points attached to every router

	OutputFile      string        // routing file watched by the proxy (empty = disabled)
	ProxyAPIURL     string        // proxy dynamic configuration endpoint (empty = disabled)
	ProxyAPITimeout time.Duration // timeout of the PUT to the proxy

	// Admin rate limiting
	AdminBurst        int // max burst of admin mutations per client IP
	AdminRefillPerMin int // admin mutations refilled per minute per client IP

	// Redis (optional change-notification sink)
	RedisAddr           string        // ex: "localhost:6379", empty = disabled
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
	RedisChannel        string        // pub/sub channel for change events

	// NATS (optional change-notification sink)
	NATSURL     string // ex: "nats://localhost:4222", empty = disabled
	NATSSubject string // subject for change events
}

// Agent configures the per-node discovery agent.
type Agent struct {
	Server

	NodeName        string        // RUNNER, name of this node in route keys and domains
	DomainBase      string        // DOMAIN_FULL, base of constructed domains
	InspectInterval time.Duration // inspection interval (default: 30s)
	DockerHost      string        // optional override of DOCKER_HOST
}

func loadServer(defaultPort string) Server {
	return Server{
		ListenPort:      getenv("SWITCHYARD_LISTEN_PORT", defaultPort),
		ShutdownTimeout: mustDuration("SWITCHYARD_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("SWITCHYARD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SWITCHYARD_PRETTY_LOG", false),

		ManifestPath: getenv("SWITCHYARD_MANIFEST_PATH", "/runner-info/json"),

		AllowedHosts: splitAndTrim(getenv("SWITCHYARD_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("SWITCHYARD_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SWITCHYARD_TRUST_PROXY", false),
	}
}

// LoadRegistry reads the registry configuration from the environment.
// It panics on invalid combinations; startup cannot continue without them.
func LoadRegistry() *Registry {
	cfg := &Registry{
		Server: loadServer(":5000"),

		EndpointsFile:  getenv("SWITCHYARD_ENDPOINTS_FILE", "/data/endpoints.yaml"),
		SeedEndpoints:  splitAndTrim(getenv("SWITCHYARD_SEED_ENDPOINTS", "")),
		WatchEndpoints: mustBool("SWITCHYARD_WATCH_ENDPOINTS", true),
		PollInterval:   mustDuration("SWITCHYARD_POLL_INTERVAL", 30*time.Second),

		FetchTimeout:     mustDuration("SWITCHYARD_FETCH_TIMEOUT", 5*time.Second),
		FetchConcurrency: getenvInt("SWITCHYARD_FETCH_CONCURRENCY", 8),
		RetainFailures:   getenvInt("SWITCHYARD_RETAIN_FAILURES", 0),

		BackendScheme: getenv("SWITCHYARD_BACKEND_SCHEME", "http"),
		BackendPort:   getenvInt("SWITCHYARD_BACKEND_PORT", 80),
		EntryPoints:   splitAndTrim(getenv("SWITCHYARD_ENTRYPOINTS", "websecure,web")),

		OutputFile:      strings.TrimSpace(getenv("SWITCHYARD_OUTPUT_FILE", "/output/services.yml")),
		ProxyAPIURL:     strings.TrimSpace(getenv("SWITCHYARD_PROXY_API_URL", "")),
		ProxyAPITimeout: mustDuration("SWITCHYARD_PROXY_API_TIMEOUT", 5*time.Second),

		AdminBurst:        getenvInt("SWITCHYARD_ADMIN_BURST", 20),
		AdminRefillPerMin: getenvInt("SWITCHYARD_ADMIN_REFILL_PER_MIN", 60),

		RedisAddr:           getenv("SWITCHYARD_REDIS_ADDR", ""),
		RedisUser:           getenv("SWITCHYARD_REDIS_USERNAME", ""),
		RedisPassword:       getenv("SWITCHYARD_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("SWITCHYARD_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
		RedisChannel:        getenv("SWITCHYARD_REDIS_CHANNEL", "switchyard:changes"),

		NATSURL:     getenv("SWITCHYARD_NATS_URL", ""),
		NATSSubject: getenv("SWITCHYARD_NATS_SUBJECT", "switchyard.changes"),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (c *Registry) validate() error {
	if c.EndpointsFile == "" {
		return fmt.Errorf("SWITCHYARD_ENDPOINTS_FILE must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("SWITCHYARD_POLL_INTERVAL must be > 0, got %v", c.PollInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("SWITCHYARD_FETCH_TIMEOUT must be > 0, got %v", c.FetchTimeout)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("SWITCHYARD_FETCH_CONCURRENCY must be >= 1, got %d", c.FetchConcurrency)
	}
	if c.RetainFailures < 0 {
		return fmt.Errorf("SWITCHYARD_RETAIN_FAILURES must be >= 0, got %d", c.RetainFailures)
	}
	if c.BackendPort < 1 || c.BackendPort > 65535 {
		return fmt.Errorf("SWITCHYARD_BACKEND_PORT out of range: %d", c.BackendPort)
	}
	if c.BackendScheme != "http" && c.BackendScheme != "https" {
		return fmt.Errorf("SWITCHYARD_BACKEND_SCHEME must be http or https, got %q", c.BackendScheme)
	}
	if c.OutputFile == "" && c.ProxyAPIURL == "" {
		return fmt.Errorf("at least one of SWITCHYARD_OUTPUT_FILE or SWITCHYARD_PROXY_API_URL must be set")
	}
	return nil
}

// LoadAgent reads the node agent configuration from the environment.
func LoadAgent() *Agent {
	cfg := &Agent{
		Server: loadServer(":80"),

		NodeName:        requireEnv("RUNNER"),
		DomainBase:      getenv("DOMAIN_FULL", "preview.tafu.casa"),
		InspectInterval: mustDuration("SWITCHYARD_INSPECT_INTERVAL", 30*time.Second),
		DockerHost:      getenv("SWITCHYARD_DOCKER_HOST", ""),
	}

	if cfg.InspectInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: SWITCHYARD_INSPECT_INTERVAL must be > 0, got %v", cfg.InspectInterval))
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", *cfg)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
