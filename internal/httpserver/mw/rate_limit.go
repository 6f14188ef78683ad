package mw

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/switchyard/internal/utils"
)

// RateLimitConfig describes a token bucket per client address.
type RateLimitConfig struct {
	Burst        int           // bucket size
	RefillPerMin int           // tokens added per minute
	MaxClients   int           // tracked clients before an early sweep, 0 for unbounded
	IdleTTL      time.Duration // idle buckets are dropped after this
	TrustProxy   bool
	Now          func() time.Time // for testing, defaults to time.Now
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

type limiter struct {
	cfg       RateLimitConfig
	every     rate.Limit
	mu        sync.Mutex
	clients   map[netip.Addr]*client
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &limiter{
		cfg:       cfg,
		every:     rate.Every(time.Minute / time.Duration(cfg.RefillPerMin)),
		clients:   make(map[netip.Addr]*client),
		lastSweep: cfg.Now(),
	}
}

// take consumes one token for key. When none is left it reports how long
// until the next one.
func (l *limiter) take(key netip.Addr, now time.Time) (ok bool, remaining int, retry time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.IdleTTL || (l.cfg.MaxClients > 0 && len(l.clients) >= l.cfg.MaxClients) {
		l.sweep(now)
	}

	c := l.clients[key]
	if c == nil {
		c = &client{lim: rate.NewLimiter(l.every, l.cfg.Burst)}
		l.clients[key] = c
	}
	c.seen = now

	if c.lim.AllowN(now, 1) {
		return true, int(math.Floor(c.lim.TokensAt(now))), 0
	}
	res := c.lim.ReserveN(now, 1)
	retry = res.DelayFrom(now)
	res.CancelAt(now)
	return false, 0, retry
}

func (l *limiter) sweep(now time.Time) {
	for k, c := range l.clients {
		if now.Sub(c.seen) > l.cfg.IdleTTL {
			delete(l.clients, k)
		}
	}
	l.lastSweep = now
}

// RateLimit limits requests per client address. Refused requests get 429
// with Retry-After in whole seconds.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, retry := l.take(utils.ClientAddr(r, l.cfg.TrustProxy), l.cfg.Now())

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				secs := int(math.Ceil(retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				reject(w, http.StatusTooManyRequests, "rate", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
