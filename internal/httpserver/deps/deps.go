package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/notify"
	"github.com/MrSnakeDoc/switchyard/internal/publisher"
	"github.com/MrSnakeDoc/switchyard/internal/snapshot"
	"github.com/MrSnakeDoc/switchyard/internal/store/endpoints"
)

// Role selects which routes a server exposes.
type Role uint8

const (
	RoleRegistry Role = 1 << iota
	RoleAgent

	RoleAny = RoleRegistry | RoleAgent
)

// Pinger is anything /infra can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Role         Role
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on admin routes
	AllowedCIDRS []string         // IPs allowed on ops and admin routes
	TrustProxy   bool             // true if running behind a trusted reverse proxy
	AdminBurst   int              // rate limit of admin mutations per client IP
	AdminRefill  int              // admin mutations refilled per minute
	Refresh      func() bool      // asks the loop for an immediate cycle, false if one is pending

	// Registry
	Endpoints     *endpoints.Store
	Registry      *snapshot.Slot[domain.RegistryState]
	Render        func(domain.RoutingConfig) publisher.Document
	Sinks         []string      // configured publisher sinks
	Notifications []string      // configured notification channels
	Hub           *notify.Hub   // websocket subscribers, nil disables /ws
	RedisClient   *redis.Client // nil when redis is disabled
	NATS          *notify.NATSSink

	// Agent
	NodeName     string
	DomainBase   string
	ManifestPath string
	Manifest     *snapshot.Slot[domain.Manifest]
	Runtime      Pinger // container runtime
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
