package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// DefaultPrecheckTimeout bounds a DNS precheck.
const DefaultPrecheckTimeout = 5 * time.Second

// Resolver is the subset of net.Resolver used by the precheck.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Precheck verifies that a domain resolves before spending a scan on it.
// Only DNS is consulted so anti-bot protection is never triggered.
type Precheck struct {
	Resolver Resolver
	Timeout  time.Duration
}

// NewPrecheck returns a precheck backed by the system resolver.
func NewPrecheck(timeout time.Duration) *Precheck {
	if timeout <= 0 {
		timeout = DefaultPrecheckTimeout
	}
	return &Precheck{Resolver: &net.Resolver{PreferGo: true}, Timeout: timeout}
}

// Check returns an *UnreachableError when the name does not exist. Other
// resolver failures are treated as reachable.
func (p *Precheck) Check(ctx context.Context, domain string) error {
	host := strings.Split(domain, "/")[0]
	host = strings.Split(host, ":")[0]

	lookupCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	addrs, err := p.Resolver.LookupHost(lookupCtx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return &UnreachableError{
				Domain: domain,
				Reason: fmt.Sprintf("domain '%s' does not exist (DNS lookup failed)", domain),
			}
		}
		return nil
	}
	if len(addrs) == 0 {
		return &UnreachableError{Domain: domain}
	}
	return nil
}
