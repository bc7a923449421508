package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/probe"
	sharederrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

func TestParseDomains(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr error
	}{
		{name: "dedupe case insensitive", raw: "a.com,A.com, b.com", want: []string{"a.com", "b.com"}},
		{name: "strip scheme and slash", raw: "https://Example.com/, http://test.org", want: []string{"example.com", "test.org"}},
		{name: "skip blanks", raw: " , a.com,,", want: []string{"a.com"}},
		{name: "keeps port", raw: "a.com:8443", want: []string{"a.com:8443"}},
		{name: "ip literal", raw: "192.0.2.1", want: []string{"192.0.2.1"}},
		{name: "idn converted", raw: "bücher.de, xn--bcher-kva.de", want: []string{"xn--bcher-kva.de"}},
		{name: "idn with port", raw: "https://bücher.de:8443/", want: []string{"xn--bcher-kva.de:8443"}},
		{name: "invalid entries kept for per-domain reporting", raw: "good.example,localhost,bad!.com", want: []string{"good.example", "localhost", "bad!.com"}},
		{name: "empty", raw: " , ", wantErr: sharederrors.ErrNoDomains},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDomains(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr error
	}{
		{domain: "example.com"},
		{domain: "my_host.example.com"},
		{domain: "xn--bcher-kva.de"},
		{domain: "a.com:8443"},
		{domain: "192.0.2.1"},
		{domain: "co.uk", wantErr: sharederrors.ErrPublicSuffix},
		{domain: "localhost", wantErr: sharederrors.ErrPublicSuffix},
		{domain: "bad!.com", wantErr: sharederrors.ErrInvalidDomain},
		{domain: "-a.com", wantErr: sharederrors.ErrInvalidDomain},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseDomains_TooMany(t *testing.T) {
	parts := make([]string, 0, MaxDomains+1)
	for i := 0; i <= MaxDomains; i++ {
		parts = append(parts, fmt.Sprintf("host%d.example.com", i))
	}
	if _, err := ParseDomains(strings.Join(parts, ",")); !errors.Is(err, sharederrors.ErrTooManyDomains) {
		t.Fatalf("expected ErrTooManyDomains, got %v", err)
	}
}

func TestRetryState(t *testing.T) {
	s := NewRetryState()
	t1 := fixedNow
	t2 := fixedNow.Add(time.Minute)

	s.AddFailure("a.com", "timeout", 1, t1)
	s.AddFailure("b.com", "tool error", 1, t1)
	s.AddFailure("a.com", "rate limited", 2, t2)

	info, ok := s.Failure("a.com")
	if !ok {
		t.Fatal("expected failure for a.com")
	}
	if info.Error != "rate limited" || info.LastAttempt != 2 {
		t.Errorf("latest failure not recorded: %+v", info)
	}
	if !info.FirstFailedAt.Equal(t1) || !info.LastFailedAt.Equal(t2) {
		t.Errorf("first failure time must be kept: %+v", info)
	}

	s.AddSuccess("a.com", resultFor("a.com"))
	if s.Failed("a.com") {
		t.Error("success must clear the failure")
	}
	if got := s.FailedDomains(); len(got) != 1 || got[0] != "b.com" {
		t.Errorf("failed domains = %v", got)
	}

	s.AddSuccess("c.com", resultFor("c.com"))
	s.AddSuccess("a.com", resultFor("a.com"))
	if got := s.SuccessfulDomains(); fmt.Sprint(got) != "[a.com c.com]" {
		t.Errorf("successful domains = %v", got)
	}
	if ok, failed := s.Counts(); ok != 2 || failed != 1 {
		t.Errorf("counts = %d/%d", ok, failed)
	}
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	if got := p.TimeoutForRound(1); got != 600*time.Second {
		t.Errorf("round 1 timeout = %s", got)
	}
	if got := p.TimeoutForRound(3); got != 1200*time.Second {
		t.Errorf("round 3 timeout = %s", got)
	}
	if !p.UseCache(1) || p.UseCache(2) {
		t.Error("only round 1 may use the cache")
	}
	if p.Backoff(0) != 5*time.Second || p.Backoff(1) != 10*time.Second || p.Backoff(2) != 20*time.Second {
		t.Error("unexpected backoff progression")
	}

	tests := []struct {
		n, requested, want int
	}{
		{n: 10, requested: 0, want: 2},
		{n: 10, requested: 8, want: 2},
		{n: 10, requested: 1, want: 1},
		{n: 1, requested: 0, want: 1},
	}
	for _, tt := range tests {
		if got := p.Concurrency(tt.n, tt.requested); got != tt.want {
			t.Errorf("Concurrency(%d, %d) = %d, want %d", tt.n, tt.requested, got, tt.want)
		}
	}

	capped := Policy{MaxConcurrency: 16}.withDefaults()
	if capped.MaxConcurrency != HardConcurrencyCap {
		t.Errorf("concurrency must be capped at %d, got %d", HardConcurrencyCap, capped.MaxConcurrency)
	}
}

func TestPolicyDo(t *testing.T) {
	limited := &probe.RateLimitedError{Domain: "a.com"}
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantWaits []time.Duration
		wantErr   bool
	}{
		{name: "success", errs: []error{nil}, wantCalls: 1},
		{name: "recovers", errs: []error{limited, limited, nil}, wantCalls: 3, wantWaits: []time.Duration{5 * time.Second, 10 * time.Second}},
		{name: "exhausted", errs: []error{limited, limited, limited}, wantCalls: 3, wantWaits: []time.Duration{5 * time.Second, 10 * time.Second}, wantErr: true},
		{name: "other error not retried", errs: []error{&probe.ToolError{Domain: "a.com", Message: "x"}}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &sleepRecorder{}
			calls := 0
			err := DefaultPolicy().Do(context.Background(), sleeper.Sleep, func(context.Context) error {
				e := tt.errs[calls]
				calls++
				return e
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if fmt.Sprint(sleeper.waits) != fmt.Sprint(tt.wantWaits) {
				t.Errorf("waits = %v, want %v", sleeper.waits, tt.wantWaits)
			}
			if tt.name == "exhausted" {
				var rl *probe.RateLimitedError
				if !errors.As(err, &rl) {
					t.Errorf("exhausted retries must surface RateLimitedError, got %v", err)
				}
			}
		})
	}
}

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(2)

	if err := r.Cancel(ctx, ""); !errors.Is(err, sharederrors.ErrEmptyRequestID) {
		t.Fatalf("expected ErrEmptyRequestID, got %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := r.Cancel(ctx, id); err != nil {
			t.Fatalf("Cancel(%s): %v", id, err)
		}
	}
	if r.Len() != 2 {
		t.Fatalf("registry must stay bounded, len = %d", r.Len())
	}
	if ok, _ := r.IsCancelled(ctx, "a"); ok {
		t.Error("oldest flag should have been evicted")
	}
	if ok, _ := r.IsCancelled(ctx, "c"); !ok {
		t.Error("newest flag missing")
	}
	_ = r.Clear(ctx, "c")
	if ok, _ := r.IsCancelled(ctx, "c"); ok {
		t.Error("flag should be cleared")
	}
}
