package orchestrator

import (
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
)

// FailureInfo is the latest failure recorded for a domain.
type FailureInfo struct {
	Domain        string    `json:"domain"`
	Error         string    `json:"error"`
	LastAttempt   int       `json:"last_attempt"`
	FirstFailedAt time.Time `json:"first_failed_at"`
	LastFailedAt  time.Time `json:"last_failed_at"`
}

// RetryState tracks the outcome of every domain across rounds. It is owned
// by the control loop and is not safe for concurrent use.
type RetryState struct {
	CurrentRound int

	successes []scan.Result
	okDomains []string
	succeeded map[string]struct{}
	failures  map[string]*FailureInfo
	failOrder []string
}

// NewRetryState returns an empty state.
func NewRetryState() *RetryState {
	return &RetryState{
		succeeded: make(map[string]struct{}),
		failures:  make(map[string]*FailureInfo),
	}
}

// AddSuccess records a result and clears any earlier failure of the domain.
func (s *RetryState) AddSuccess(domain string, res scan.Result) {
	if _, ok := s.succeeded[domain]; !ok {
		s.succeeded[domain] = struct{}{}
		s.successes = append(s.successes, res)
		s.okDomains = append(s.okDomains, domain)
	}
	if _, failed := s.failures[domain]; failed {
		delete(s.failures, domain)
		for i, d := range s.failOrder {
			if d == domain {
				s.failOrder = append(s.failOrder[:i], s.failOrder[i+1:]...)
				break
			}
		}
	}
}

// AddFailure records a failure. The first failure time is kept across
// repeated failures.
func (s *RetryState) AddFailure(domain, msg string, attempt int, at time.Time) {
	if info, ok := s.failures[domain]; ok {
		info.Error = msg
		info.LastAttempt = attempt
		info.LastFailedAt = at
		return
	}
	s.failures[domain] = &FailureInfo{
		Domain:        domain,
		Error:         msg,
		LastAttempt:   attempt,
		FirstFailedAt: at,
		LastFailedAt:  at,
	}
	s.failOrder = append(s.failOrder, domain)
}

// Failed reports whether domain currently has a failure recorded.
func (s *RetryState) Failed(domain string) bool {
	_, ok := s.failures[domain]
	return ok
}

// Failure returns the failure recorded for domain.
func (s *RetryState) Failure(domain string) (FailureInfo, bool) {
	info, ok := s.failures[domain]
	if !ok {
		return FailureInfo{}, false
	}
	return *info, true
}

// Successes returns results in the order they were recorded.
func (s *RetryState) Successes() []scan.Result {
	out := make([]scan.Result, len(s.successes))
	copy(out, s.successes)
	return out
}

// SuccessfulDomains lists the domains of Successes in the same order.
func (s *RetryState) SuccessfulDomains() []string {
	out := make([]string, len(s.okDomains))
	copy(out, s.okDomains)
	return out
}

// Failures returns failures ordered by their first occurrence.
func (s *RetryState) Failures() []FailureInfo {
	out := make([]FailureInfo, 0, len(s.failOrder))
	for _, d := range s.failOrder {
		out = append(out, *s.failures[d])
	}
	return out
}

// FailedDomains lists the domains of Failures.
func (s *RetryState) FailedDomains() []string {
	out := make([]string, len(s.failOrder))
	copy(out, s.failOrder)
	return out
}

// Counts returns the number of successful and failed domains.
func (s *RetryState) Counts() (successful, failed int) {
	return len(s.successes), len(s.failures)
}
