package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Headers set by the reverse proxies we run behind, most specific first.
var forwardHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// ClientAddr resolves the address a request originates from. Forwarding
// headers are honored only with trustProxy; the first one that parses wins.
// The zero Addr is returned when nothing parses.
func ClientAddr(r *http.Request, trustProxy bool) netip.Addr {
	if trustProxy {
		for _, h := range forwardHeaders {
			if a, ok := parseAddr(firstHop(r.Header.Get(h))); ok {
				return a
			}
		}
	}
	a, _ := parseAddr(r.RemoteAddr)
	return a
}

// StripPort returns the host part of "host:port", "[v6]:port" or "host".
func StripPort(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}

func firstHop(v string) string {
	v, _, _ = strings.Cut(v, ",")
	return strings.TrimSpace(v)
}

func parseAddr(s string) (netip.Addr, bool) {
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(strings.Trim(s, "[]")); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}

// PrefixSet matches addresses against a list of IPs and CIDRs.
type PrefixSet struct {
	prefixes []netip.Prefix
}

// ParsePrefixSet parses IPs and CIDRs. Blank entries are skipped, entries
// that do not parse are returned so callers can report them.
func ParsePrefixSet(list []string) (PrefixSet, []string) {
	var (
		set     PrefixSet
		invalid []string
	)
	for _, raw := range list {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if p, err := netip.ParsePrefix(v); err == nil {
			set.prefixes = append(set.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(v); err == nil {
			a = a.Unmap()
			set.prefixes = append(set.prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		invalid = append(invalid, v)
	}
	return set, invalid
}

func (s PrefixSet) Len() int { return len(s.prefixes) }

func (s PrefixSet) Contains(a netip.Addr) bool {
	if !a.IsValid() {
		return false
	}
	a = a.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
