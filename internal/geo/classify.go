// Package geo classifies host strings and looks them up against an
// ip-api-style geolocation service.
package geo

import (
	"regexp"
	"strings"
)

// HostKind classifies a candidate string for geolocation.
type HostKind int

const (
	KindNone HostKind = iota
	KindIPv4
	KindIPv6
	KindHostname
)

var (
	// Dots may appear as dashes in cloaked hosts (1-2-3-4.provider.net).
	ipv4Re = regexp.MustCompile(`(?:[0-9]{1,3}[.\-]){3}[0-9]{1,3}`)
	ipv6Re = regexp.MustCompile(`^((?:[0-9A-Fa-f]{1,4}))((?::[0-9A-Fa-f]{1,4}))*::((?:[0-9A-Fa-f]{1,4}))((?::[0-9A-Fa-f]{1,4}))*|((?:[0-9A-Fa-f]{1,4}))((?::[0-9A-Fa-f]{1,4})){7}$`)
	rdnsRe = regexp.MustCompile(`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9\-]*[A-Za-z0-9])$`)
)

// Classify decides whether a string is a plausible lookup target. A bare
// label without dots is not resolvable, so hostnames require at least one.
func Classify(s string) HostKind {
	switch {
	case ipv4Re.MatchString(s):
		return KindIPv4
	case ipv6Re.MatchString(s):
		return KindIPv6
	case rdnsRe.MatchString(s) && strings.Contains(s, "."):
		return KindHostname
	default:
		return KindNone
	}
}

// Normalize extracts the lookup string for a classified host. Embedded
// IPv4 addresses have dash separators rewritten to dots; everything else
// passes through unchanged.
func Normalize(s string, kind HostKind) string {
	if kind == KindIPv4 {
		addr := ipv4Re.FindString(s)
		return strings.ReplaceAll(addr, "-", ".")
	}
	return s
}
