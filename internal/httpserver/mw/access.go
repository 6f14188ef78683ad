package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/utils"
)

// AllowOnlyCIDRS refuses clients outside the allowed IPs and CIDRs.
// An empty list disables the check. A list where nothing parses refuses
// everyone rather than opening the routes.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	set, invalid := utils.ParsePrefixSet(allowed)
	if len(invalid) > 0 {
		log.Warn("ignoring invalid allowed CIDR entries", logger.Strings("entries", invalid))
	}
	if set.Len() == 0 && len(invalid) == 0 {
		return passthrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := utils.ClientAddr(r, trustProxy)
			if !set.Contains(addr) {
				log.Debug("client address refused",
					logger.String("client", addr.String()),
					logger.String("path", r.URL.Path))
				reject(w, http.StatusForbidden, "cidr", "client address not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hostPattern is either an exact host or a "*.domain" wildcard, stored as
// its ".domain" suffix. Wildcards do not match the bare domain.
type hostPattern struct {
	exact  string
	suffix string
}

func (p hostPattern) match(host string) bool {
	if p.suffix != "" {
		return strings.HasSuffix(host, p.suffix) && len(host) > len(p.suffix)
	}
	return host == p.exact
}

func compileHosts(allowed []string) []hostPattern {
	var out []hostPattern
	for _, raw := range allowed {
		h := strings.ToLower(strings.TrimSpace(raw))
		if h == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(h, "*"); ok && strings.HasPrefix(rest, ".") {
			out = append(out, hostPattern{suffix: rest})
			continue
		}
		out = append(out, hostPattern{exact: utils.StripPort(h)})
	}
	return out
}

// EnforceHost refuses requests whose Host header, port and case ignored,
// matches none of the allowed hosts. An empty list disables the check.
func EnforceHost(allowed []string, log logger.Logger) func(http.Handler) http.Handler {
	patterns := compileHosts(allowed)
	if len(patterns) == 0 {
		return passthrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(utils.StripPort(r.Host))
			for _, p := range patterns {
				if p.match(host) {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Debug("host refused", logger.String("host", r.Host), logger.String("path", r.URL.Path))
			reject(w, http.StatusForbidden, "host", "host not allowed")
		})
	}
}
