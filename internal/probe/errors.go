package probe

import (
	"fmt"
	"time"
)

// RateLimitedError reports that the assessment service throttled the scan.
type RateLimitedError struct {
	Domain string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited for %s", e.Domain)
}

// TimeoutError reports that the tool did not finish within its budget.
type TimeoutError struct {
	Domain  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scan timed out for %s after %s", e.Domain, e.Timeout)
}

// ToolError is any other tool failure.
type ToolError struct {
	Domain  string
	Message string
}

func (e *ToolError) Error() string {
	if e.Domain == "" {
		return e.Message
	}
	return fmt.Sprintf("scan failed for %s: %s", e.Domain, e.Message)
}

// InvalidOutputError reports tool output that is not a host report list.
type InvalidOutputError struct {
	Domain string
	Err    error
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("invalid JSON from scan of %s: %v", e.Domain, e.Err)
}

func (e *InvalidOutputError) Unwrap() error {
	return e.Err
}

// UnreachableError reports a domain that failed the DNS precheck.
type UnreachableError struct {
	Domain string
	Reason string
}

func (e *UnreachableError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("domain '%s' does not exist (DNS lookup failed)", e.Domain)
}
