package domain

import (
	"errors"
	"fmt"
	"strings"
)

const hostRulePrefix = "Host(`"

var (
	// ErrNoHostRule means the expression contains no Host(...) matcher.
	ErrNoHostRule = errors.New("no Host rule in expression")

	// ErrMalformedHostRule means a Host(...) matcher was found but is not
	// of the form Host(`hostname`).
	ErrMalformedHostRule = errors.New("malformed Host rule")
)

// HostRule renders the single supported rule shape for a hostname.
func HostRule(hostname string) string {
	return hostRulePrefix + hostname + "`)"
}

// ParseHostRule extracts the hostname from the first Host(`...`) matcher of
// a routing-rule expression. Other matchers around it (&&, PathPrefix, ...)
// are ignored.
func ParseHostRule(expr string) (string, error) {
	start := strings.Index(expr, "Host(")
	if start < 0 {
		return "", ErrNoHostRule
	}
	rest := expr[start:]
	if !strings.HasPrefix(rest, hostRulePrefix) {
		return "", fmt.Errorf("%w: expected backtick after Host(", ErrMalformedHostRule)
	}
	rest = rest[len(hostRulePrefix):]

	end := strings.IndexByte(rest, '`')
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated hostname", ErrMalformedHostRule)
	}
	host := strings.TrimSpace(rest[:end])
	if host == "" {
		return "", fmt.Errorf("%w: empty hostname", ErrMalformedHostRule)
	}
	if strings.ContainsAny(host, " ,()") {
		return "", fmt.Errorf("%w: invalid hostname %q", ErrMalformedHostRule, host)
	}
	if !strings.HasPrefix(rest[end+1:], ")") {
		return "", fmt.Errorf("%w: missing closing parenthesis", ErrMalformedHostRule)
	}
	return host, nil
}

// FallbackDomain constructs <service>.<node>.<base> with empty parts
// skipped and repeated dots collapsed.
// Example: ("web", "staging", "example.com") -> "web.staging.example.com"
func FallbackDomain(service, node, base string) string {
	joined := strings.Join([]string{service, node, base}, ".")
	parts := strings.Split(joined, ".")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			labels = append(labels, p)
		}
	}
	return strings.Join(labels, ".")
}
