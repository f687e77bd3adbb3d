package gemini

import (
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// NormalizeHostname returns hostname in the form used for comparisons:
// lowercase, without a trailing dot, and with international labels
// converted to punycode. IP addresses are returned unchanged.
func NormalizeHostname(hostname string) (string, error) {
	hostname = strings.TrimSuffix(strings.ToLower(hostname), ".")
	if net.ParseIP(hostname) != nil {
		return hostname, nil
	}
	if isASCII(hostname) {
		return hostname, nil
	}
	return idna.Lookup.ToASCII(hostname)
}
