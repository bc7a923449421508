package orchestrator

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/khanhnv2901/seca-pqc/internal/transform"
	sharederrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

// MaxDomains caps the number of domains accepted in one request.
const MaxDomains = 100

// Request is one multi-domain scan.
type Request struct {
	Domains        []string
	MaxConcurrency int
	SaveResults    bool
	// RequestID and BatchID are generated when empty.
	RequestID string
	BatchID   string
}

// ParseDomains splits a comma separated domain list. Entries are lower-cased,
// stripped of scheme and trailing slash, and internationalized names are
// converted to their ASCII form; duplicates keep their first position.
// Entries are not validated here: Run reports an invalid entry as a failure
// for that domain, so only an empty or oversized list is an error.
func ParseDomains(raw string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		d := toASCII(transform.NormalizeDomain(strings.ToLower(part)))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, sharederrors.ErrNoDomains
	}
	if len(out) > MaxDomains {
		return nil, fmt.Errorf("%w: %d > %d", sharederrors.ErrTooManyDomains, len(out), MaxDomains)
	}
	return out, nil
}

// toASCII converts the host part of d to punycode. Names idna rejects are
// returned unchanged and fail validation later.
func toASCII(d string) string {
	ascii := true
	for i := 0; i < len(d); i++ {
		if d[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return d
	}
	host, rest := d, ""
	if i := strings.IndexAny(d, ":/"); i >= 0 {
		host, rest = d[:i], d[i:]
	}
	converted, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return d
	}
	return converted + rest
}

// ValidateDomain checks that d names a registrable host. IP literals pass.
func ValidateDomain(d string) error {
	host := strings.SplitN(d, "/", 2)[0]
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if host == "" || len(host) > 253 {
		return fmt.Errorf("%w: %q", sharederrors.ErrInvalidDomain, d)
	}
	for _, label := range strings.Split(host, ".") {
		if !validLabel(label) {
			return fmt.Errorf("%w: %q", sharederrors.ErrInvalidDomain, d)
		}
	}
	if suffix, _ := publicsuffix.PublicSuffix(host); suffix == host {
		return fmt.Errorf("%w: %q", sharederrors.ErrPublicSuffix, d)
	}
	return nil
}

func validLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
