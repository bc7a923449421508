package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/probe"
)

// HardConcurrencyCap bounds parallel tool runs per round regardless of the
// requested concurrency.
const HardConcurrencyCap = 2

// Policy controls rounds, timeouts and rate-limit backoff.
type Policy struct {
	MaxRounds        int
	RetryDelay       time.Duration
	InitialTimeout   time.Duration
	TimeoutIncrement time.Duration
	MaxConcurrency   int
	BackoffAttempts  int
	BackoffBase      time.Duration
	// Pacing is slept by a worker after each successful scan.
	Pacing time.Duration
	// DispatchInterval spaces tool calls across all runs; zero disables it.
	DispatchInterval time.Duration
}

// DefaultPolicy returns the production retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRounds:        3,
		RetryDelay:       30 * time.Second,
		InitialTimeout:   600 * time.Second,
		TimeoutIncrement: 300 * time.Second,
		MaxConcurrency:   HardConcurrencyCap,
		BackoffAttempts:  3,
		BackoffBase:      5 * time.Second,
		Pacing:           5 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxRounds <= 0 {
		p.MaxRounds = def.MaxRounds
	}
	if p.InitialTimeout <= 0 {
		p.InitialTimeout = def.InitialTimeout
	}
	if p.MaxConcurrency <= 0 || p.MaxConcurrency > HardConcurrencyCap {
		p.MaxConcurrency = HardConcurrencyCap
	}
	if p.BackoffAttempts <= 0 {
		p.BackoffAttempts = 1
	}
	if p.RetryDelay < 0 {
		p.RetryDelay = 0
	}
	if p.TimeoutIncrement < 0 {
		p.TimeoutIncrement = 0
	}
	return p
}

// TimeoutForRound grows the tool timeout by TimeoutIncrement per round.
func (p Policy) TimeoutForRound(round int) time.Duration {
	if round < 1 {
		round = 1
	}
	return p.InitialTimeout + time.Duration(round-1)*p.TimeoutIncrement
}

// UseCache reports whether the tool may serve cached assessments.
func (p Policy) UseCache(round int) bool {
	return round == 1
}

// Concurrency returns the worker count for a round of n domains.
func (p Policy) Concurrency(n, requested int) int {
	c := p.MaxConcurrency
	if requested > 0 && requested < c {
		c = requested
	}
	if n < c {
		c = n
	}
	if c < 1 {
		c = 1
	}
	return c
}

// Backoff is the wait before rate-limit retry number retry (zero based).
func (p Policy) Backoff(retry int) time.Duration {
	return p.BackoffBase * time.Duration(1<<retry)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn and retries it while it fails with a *probe.RateLimitedError,
// up to BackoffAttempts calls in total. The last rate-limit error is
// returned once attempts are exhausted; any other error is returned at once.
func (p Policy) Do(ctx context.Context, sleep SleepFunc, fn func(context.Context) error) error {
	if sleep == nil {
		sleep = sleepContext
	}
	for retry := 0; ; retry++ {
		err := fn(ctx)
		var limited *probe.RateLimitedError
		if err == nil || !errors.As(err, &limited) || retry >= p.BackoffAttempts-1 {
			return err
		}
		if serr := sleep(ctx, p.Backoff(retry)); serr != nil {
			return serr
		}
	}
}
