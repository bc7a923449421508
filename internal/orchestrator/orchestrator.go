package orchestrator

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/pqc"
	"github.com/khanhnv2901/seca-pqc/internal/probe"
	sharederrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
	"github.com/khanhnv2901/seca-pqc/internal/stream"
)

// Messages recorded for cancelled domains.
const (
	MsgCancelledByUser      = "Scan cancelled by user"
	MsgCancelledBeforeRound = "Scan cancelled before round started"
	MsgCancelledDuringRound = "Scan cancelled during round"
)

// DefaultSingleTimeout bounds a single-domain scan, which gets no retry rounds.
const DefaultSingleTimeout = 600 * time.Second

const persistTimeout = 10 * time.Second

// Prechecker decides whether a domain is worth scanning.
type Prechecker interface {
	Check(ctx context.Context, domain string) error
}

// Config wires an Orchestrator.
type Config struct {
	Tool     probe.Tool
	Precheck Prechecker
	// Recorder persists batches; nil disables persistence.
	Recorder scan.Recorder
	// Registry holds cancellation flags; nil uses a MemoryRegistry.
	Registry      Registry
	Policy        Policy
	Builder       pqc.Builder
	SingleTimeout time.Duration
	Logger        *zap.Logger

	Sleep SleepFunc
	Now   func() time.Time
	NewID func() string
}

// Orchestrator runs scans over domain lists in retry rounds.
type Orchestrator struct {
	pipeline      *Pipeline
	precheck      Prechecker
	recorder      scan.Recorder
	registry      Registry
	policy        Policy
	singleTimeout time.Duration
	logger        *zap.Logger
	sleep         SleepFunc
	now           func() time.Time
	newID         func() string
	limiter       *rate.Limiter
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewMemoryRegistry(DefaultRegistryLimit)
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	single := cfg.SingleTimeout
	if single <= 0 {
		single = DefaultSingleTimeout
	}
	policy := cfg.Policy.withDefaults()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if policy.DispatchInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(policy.DispatchInterval), policy.MaxConcurrency)
	}

	return &Orchestrator{
		pipeline: &Pipeline{
			Tool:    cfg.Tool,
			Builder: cfg.Builder,
			Now:     now,
			Logger:  logger,
		},
		precheck:      cfg.Precheck,
		recorder:      cfg.Recorder,
		registry:      registry,
		policy:        policy,
		singleTimeout: single,
		logger:        logger,
		sleep:         sleep,
		now:           now,
		newID:         newID,
		limiter:       limiter,
	}
}

// Policy returns the effective retry policy.
func (o *Orchestrator) Policy() Policy { return o.policy }

// Cancel flags a running request for cooperative cancellation.
func (o *Orchestrator) Cancel(ctx context.Context, requestID string) error {
	if requestID == "" {
		return sharederrors.ErrEmptyRequestID
	}
	return o.registry.Cancel(ctx, requestID)
}

// ScanOne scans a single domain without retry rounds and returns the typed
// failure directly.
func (o *Orchestrator) ScanOne(ctx context.Context, domain string) (*scan.Result, error) {
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}
	if o.precheck != nil {
		if err := o.precheck.Check(ctx, domain); err != nil {
			return nil, err
		}
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return o.pipeline.Run(ctx, domain, Attempt{Round: 1, UseCache: true, Timeout: o.singleTimeout})
}

// Totals is the headline count of a finished run.
type Totals struct {
	TotalDomains    int       `json:"total_domains"`
	Successful      int       `json:"successful"`
	Failed          int       `json:"failed"`
	RoundsCompleted int       `json:"rounds_completed"`
	Timestamp       time.Time `json:"timestamp"`
}

// Outcome is the final state of a run.
type Outcome struct {
	RequestID       string               `json:"request_id"`
	BatchID         string               `json:"batch_id"`
	Cancelled       bool                 `json:"cancelled"`
	Summary         Totals               `json:"summary"`
	SuccessfulScans []scan.Result        `json:"successful_scans"`
	FailedScans     []FailureInfo        `json:"failed_scans"`
	Rounds          []stream.RoundRecord `json:"rounds"`
	Duration        time.Duration        `json:"-"`
}

// Run scans req.Domains in retry rounds, emitting progress to em. It only
// fails for an empty request; per-domain failures are part of the Outcome.
func (o *Orchestrator) Run(ctx context.Context, req Request, em stream.Emitter) (*Outcome, error) {
	if len(req.Domains) == 0 {
		return nil, sharederrors.ErrNoDomains
	}
	if em == nil {
		em = stream.Discard
	}
	r := &run{
		o:       o,
		req:     req,
		em:      em,
		state:   NewRetryState(),
		total:   len(req.Domains),
		started: o.now(),
		logger:  o.logger,
	}
	r.requestID = req.RequestID
	if r.requestID == "" {
		r.requestID = o.newID()
	}
	r.batchID = req.BatchID
	if r.batchID == "" {
		r.batchID = o.newID()
	}
	r.logger = o.logger.With(zap.String("request_id", r.requestID), zap.String("batch_id", r.batchID))
	defer func() {
		if err := o.registry.Clear(context.WithoutCancel(ctx), r.requestID); err != nil {
			r.logger.Warn("failed to clear cancellation flag", zap.Error(err))
		}
	}()

	r.createBatch(ctx)
	r.emit(stream.Start{
		Header:       r.header(stream.TypeStart),
		RequestID:    r.requestID,
		BatchID:      r.batchID,
		TotalDomains: r.total,
		SaveToDB:     r.saving(),
		MaxRounds:    o.policy.MaxRounds,
	})

	online := r.precheck(ctx)
	r.rounds(ctx, online)
	return r.finish(ctx), nil
}

// run is the state of one Run call. Only the control goroutine touches it.
type run struct {
	o         *Orchestrator
	req       Request
	em        stream.Emitter
	state     *RetryState
	logger    *zap.Logger
	requestID string
	batchID   string
	total     int
	started   time.Time
	history   []stream.RoundRecord
	cancelled bool
}

type outcome struct {
	domain  string
	result  *scan.Result
	err     error
	skipped bool
}

func (r *run) saving() bool {
	return r.req.SaveResults && r.o.recorder != nil
}

func (r *run) header(t stream.Type) stream.Header {
	ok, failed := r.state.Counts()
	return stream.NewHeader(t, r.o.now(), stream.Totals{
		Total:      r.total,
		Completed:  ok + failed,
		Successful: ok,
		Failed:     failed,
	})
}

func (r *run) emit(e stream.Event) {
	r.em.Emit(e)
}

// isCancelled reports whether the client went away or the request was
// flagged in the registry.
func (r *run) isCancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	flagged, err := r.o.registry.IsCancelled(ctx, r.requestID)
	if err != nil {
		r.logger.Warn("cancellation lookup failed", zap.Error(err))
		return false
	}
	return flagged
}

// precheck drops domains that are malformed or fail the DNS check,
// recording each as offline.
func (r *run) precheck(ctx context.Context) []string {
	online := make([]string, 0, len(r.req.Domains))
	for _, d := range r.req.Domains {
		err := ValidateDomain(d)
		if err == nil && r.o.precheck != nil {
			err = r.o.precheck.Check(ctx, d)
			var unreachable *probe.UnreachableError
			if err != nil && !errors.As(err, &unreachable) {
				err = nil
			}
		}
		if err == nil {
			online = append(online, d)
			continue
		}
		msg := err.Error()
		r.state.AddFailure(d, msg, 0, r.o.now())
		r.saveFailure(ctx, d, msg)
		r.logger.Info("domain offline", zap.String("domain", d), zap.String("reason", msg))
		r.emit(stream.DomainOffline{
			Header: r.header(stream.TypeDomainOffline),
			Domain: d,
			Error:  msg,
		})
	}
	return online
}

func (r *run) rounds(ctx context.Context, pending []string) {
	policy := r.o.policy
	for round := 1; round <= policy.MaxRounds && len(pending) > 0; round++ {
		if r.isCancelled(ctx) {
			r.cancel(ctx, pending, round, MsgCancelledBeforeRound)
			return
		}
		pending = r.runRound(ctx, round, pending)
		if r.cancelled || len(pending) == 0 || round == policy.MaxRounds {
			return
		}

		r.emit(stream.RetryWait{
			Header:         r.header(stream.TypeRetryWait),
			Round:          round,
			NextRound:      round + 1,
			DomainsToRetry: len(pending),
			Delay:          policy.RetryDelay.Seconds(),
		})
		r.logger.Info("waiting before retry round",
			zap.Int("round", round+1),
			zap.Int("domains", len(pending)),
			zap.Duration("delay", policy.RetryDelay))
		// An interrupted wait is picked up by the cancellation check above.
		_ = r.o.sleep(ctx, policy.RetryDelay)
	}
}

// runRound scans domains with bounded concurrency and returns those that
// failed, in input order.
func (r *run) runRound(ctx context.Context, round int, domains []string) []string {
	policy := r.o.policy
	r.state.CurrentRound = round
	roundStart := r.o.now()
	r.emit(stream.RoundStart{
		Header:         r.header(stream.TypeRoundStart),
		Round:          round,
		DomainsInRound: len(domains),
	})
	r.logger.Info("round started", zap.Int("round", round), zap.Int("domains", len(domains)))

	attempt := Attempt{
		Round:    round,
		UseCache: policy.UseCache(round),
		Timeout:  policy.TimeoutForRound(round),
	}

	starts := make(map[string]time.Time, len(domains))
	for _, d := range domains {
		starts[d] = r.o.now()
		r.emit(stream.DomainProcessing{
			Header:    r.header(stream.TypeDomainProcessing),
			Domain:    d,
			Status:    stream.StatusProcessing,
			Round:     round,
			StartedAt: starts[d],
		})
	}

	// Stopping a round only halts dispatch. Probes already running keep ctx
	// and finish; their outcomes are still applied.
	stop := make(chan struct{})
	pacingCtx, stopPacing := context.WithCancel(ctx)
	defer stopPacing()
	var halted bool
	halt := func() {
		if !halted {
			halted = true
			close(stop)
			stopPacing()
		}
	}
	stopped := func() bool {
		select {
		case <-stop:
			return true
		default:
			return ctx.Err() != nil
		}
	}

	results := make(chan outcome, len(domains))
	var g errgroup.Group
	g.SetLimit(policy.Concurrency(len(domains), r.req.MaxConcurrency))

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for _, d := range domains {
			if stopped() {
				results <- outcome{domain: d, skipped: true}
				continue
			}
			g.Go(func() error {
				if stopped() {
					results <- outcome{domain: d, skipped: true}
					return nil
				}
				res, err := r.o.scanWithBackoff(ctx, d, attempt)
				results <- outcome{domain: d, result: res, err: err}
				if err == nil {
					_ = r.o.sleep(pacingCtx, policy.Pacing)
				}
				return nil
			})
		}
	}()

	record := stream.RoundRecord{Round: round, DomainsProcessed: len(domains), Status: stream.StatusCompleted}
	var notStarted []string
	for range domains {
		out := <-results
		if out.skipped || (out.err != nil && ctx.Err() != nil && errors.Is(out.err, ctx.Err())) {
			notStarted = append(notStarted, out.domain)
			continue
		}
		if r.applyOutcome(ctx, out, round, roundStart, starts[out.domain]) {
			record.Successful++
		} else {
			record.Failed++
		}
		if !halted && r.isCancelled(ctx) {
			r.logger.Info("cancellation requested, waiting for running scans", zap.Int("round", round))
			halt()
		}
	}
	<-dispatched
	_ = g.Wait()

	if halted || len(notStarted) > 0 {
		record.Status = "cancelled"
		record.Duration = round2(r.o.now().Sub(roundStart).Seconds())
		r.history = append(r.history, record)
		r.cancel(ctx, sortedLike(domains, notStarted), round, MsgCancelledDuringRound)
		return nil
	}

	duration := round2(r.o.now().Sub(roundStart).Seconds())
	record.Duration = duration
	r.history = append(r.history, record)
	r.emit(stream.RoundComplete{
		Header:           r.header(stream.TypeRoundComplete),
		Round:            round,
		Duration:         duration,
		DomainsProcessed: len(domains),
	})
	r.logger.Info("round completed",
		zap.Int("round", round),
		zap.Int("successful", record.Successful),
		zap.Int("failed", record.Failed))

	var next []string
	for _, d := range domains {
		if r.state.Failed(d) {
			next = append(next, d)
		}
	}
	return next
}

// applyOutcome records a worker result and emits domain_complete. It reports
// whether the domain succeeded.
func (r *run) applyOutcome(ctx context.Context, out outcome, round int, roundStart, domainStart time.Time) bool {
	now := r.o.now()
	duration := round2(now.Sub(domainStart).Seconds())
	ev := stream.DomainComplete{
		Domain:             out.domain,
		Round:              round,
		Duration:           duration,
		Total:              r.total,
		RoundStartTime:     roundStart,
		DomainStartTime:    domainStart,
		TimeInCurrentRound: round2(now.Sub(roundStart).Seconds()),
	}

	ok := out.err == nil
	if ok {
		res := *out.result
		res.ExecutionTimeSeconds = duration
		r.state.AddSuccess(out.domain, res)
		ev.Status = stream.StatusCompleted
		ev.Result = &res
		ev.SavedToDB = r.saveResult(ctx, &res)
		r.logger.Info("domain scanned",
			zap.String("domain", out.domain),
			zap.Int("round", round),
			zap.String("quantum_grade", res.QuantumGrade))
	} else {
		msg := failureMessage(out.err)
		r.state.AddFailure(out.domain, msg, round, now)
		ev.Status = stream.StatusFailed
		ev.Error = msg
		ev.SavedToDB = r.saveFailure(ctx, out.domain, msg)
		var limited *probe.RateLimitedError
		if errors.As(out.err, &limited) {
			r.logger.Warn("domain rate limited", zap.String("domain", out.domain), zap.Int("round", round))
		} else {
			r.logger.Warn("domain failed", zap.String("domain", out.domain), zap.Int("round", round), zap.Error(out.err))
		}
	}

	successful, failed := r.state.Counts()
	ev.Header = r.header(stream.TypeDomainComplete)
	ev.Completed = successful + failed
	ev.Percentage = round2(float64(ev.Completed) / float64(r.total) * 100)
	ev.Summary = stream.Counts{Successful: successful, Failed: failed}
	r.emit(ev)
	return ok
}

func (r *run) cancel(ctx context.Context, domains []string, round int, message string) {
	r.cancelled = true
	now := r.o.now()
	for _, d := range domains {
		r.state.AddFailure(d, MsgCancelledByUser, round, now)
		r.saveFailure(ctx, d, MsgCancelledByUser)
	}
	r.logger.Info("scan cancelled", zap.Int("round", round), zap.Int("domains", len(domains)))
	r.emit(stream.Cancelled{
		Header:  r.header(stream.TypeCancelled),
		Message: message,
	})
}

func (r *run) finish(ctx context.Context) *Outcome {
	end := r.o.now()
	successful, failed := r.state.Counts()
	if r.saving() {
		pctx, cancel := r.persistCtx(ctx)
		defer cancel()
		if err := r.o.recorder.UpdateBatchStatus(pctx, r.batchID, scan.BatchStatusCompleted, successful, failed); err != nil {
			r.logger.Error("failed to update batch status", zap.Error(err))
		}
	}

	statuses := make(map[string]stream.DomainStatus, r.total)
	okDomains := r.state.SuccessfulDomains()
	for i, res := range r.state.Successes() {
		d := res.ExecutionTimeSeconds
		statuses[okDomains[i]] = stream.DomainStatus{
			Status:   stream.StatusCompleted,
			Round:    res.ScanMetadata.Attempt,
			Duration: &d,
			Result:   &res,
		}
	}
	for _, f := range r.state.Failures() {
		statuses[f.Domain] = stream.DomainStatus{
			Status: stream.StatusFailed,
			Round:  f.LastAttempt,
			Error:  f.Error,
		}
	}

	history := r.history
	if history == nil {
		history = []stream.RoundRecord{}
	}
	totalDuration := end.Sub(r.started)
	r.emit(stream.Complete{
		Header:            r.header(stream.TypeComplete),
		RequestID:         r.requestID,
		BatchID:           r.batchID,
		SavedToDB:         r.saving(),
		TotalDuration:     round2(totalDuration.Seconds()),
		RoundsCompleted:   r.state.CurrentRound,
		Summary:           stream.RunSummary{Total: r.total, Successful: successful, Failed: failed},
		SuccessfulDomains: r.state.SuccessfulDomains(),
		FailedDomains:     r.state.FailedDomains(),
		AllDomainsStatus:  statuses,
		RoundHistory:      history,
	})
	r.logger.Info("scan finished",
		zap.Int("successful", successful),
		zap.Int("failed", failed),
		zap.Int("rounds", r.state.CurrentRound),
		zap.Bool("cancelled", r.cancelled),
		zap.Duration("duration", totalDuration))

	return &Outcome{
		RequestID: r.requestID,
		BatchID:   r.batchID,
		Cancelled: r.cancelled,
		Summary: Totals{
			TotalDomains:    r.total,
			Successful:      successful,
			Failed:          failed,
			RoundsCompleted: r.state.CurrentRound,
			Timestamp:       end,
		},
		SuccessfulScans: r.state.Successes(),
		FailedScans:     r.state.Failures(),
		Rounds:          history,
		Duration:        totalDuration,
	}
}

func (r *run) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (r *run) createBatch(ctx context.Context) {
	if !r.saving() {
		return
	}
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	if err := r.o.recorder.CreateBatch(pctx, r.batchID, r.total, r.req.MaxConcurrency); err != nil {
		r.logger.Error("failed to create batch", zap.Error(err))
	}
}

func (r *run) saveResult(ctx context.Context, res *scan.Result) bool {
	if !r.saving() {
		return false
	}
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	if err := r.o.recorder.SaveResult(pctx, res, r.batchID); err != nil {
		r.logger.Error("failed to save result", zap.String("domain", res.URL), zap.Error(err))
		return false
	}
	return true
}

func (r *run) saveFailure(ctx context.Context, domain, msg string) bool {
	if !r.saving() {
		return false
	}
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	err := r.o.recorder.SaveFailure(pctx, scan.Failure{
		Domain:    domain,
		Error:     msg,
		BatchID:   r.batchID,
		RequestID: r.requestID + "_" + domain,
		FailedAt:  r.o.now(),
	})
	if err != nil {
		r.logger.Error("failed to save failure", zap.String("domain", domain), zap.Error(err))
		return false
	}
	return true
}

func (o *Orchestrator) scanWithBackoff(ctx context.Context, domain string, at Attempt) (*scan.Result, error) {
	var res *scan.Result
	err := o.policy.Do(ctx, o.sleep, func(ctx context.Context) error {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		res, err = o.pipeline.Run(ctx, domain, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// sortedLike returns the members of subset in the order they appear in all.
func sortedLike(all, subset []string) []string {
	in := make(map[string]bool, len(subset))
	for _, d := range subset {
		in[d] = true
	}
	out := make([]string, 0, len(subset))
	for _, d := range all {
		if in[d] {
			out = append(out, d)
		}
	}
	return out
}

func failureMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return MsgCancelledByUser
	}
	return err.Error()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
