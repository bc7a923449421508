package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/pqc"
	"github.com/khanhnv2901/seca-pqc/internal/probe"
	"github.com/khanhnv2901/seca-pqc/internal/transform"
)

// Attempt describes one tool invocation.
type Attempt struct {
	Round    int
	UseCache bool
	Timeout  time.Duration
}

// Pipeline turns one domain into a scored, formatted result.
type Pipeline struct {
	Tool    probe.Tool
	Builder pqc.Builder
	Now     func() time.Time
	Logger  *zap.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// Run probes domain, transforms and scores the output and formats the
// client result.
func (p *Pipeline) Run(ctx context.Context, domain string, at Attempt) (*scan.Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	start := p.now()

	hosts, err := p.Tool.Scan(ctx, domain, at.UseCache, at.Timeout)
	if err != nil {
		return nil, err
	}

	s, err := transform.Transform(hosts)
	if err != nil {
		var noData *transform.NoDataError
		if errors.As(err, &noData) {
			return nil, &transform.NoDataError{Domain: domain}
		}
		return nil, fmt.Errorf("transform %s: %w", domain, err)
	}
	if s.Domain == "" {
		s.Domain = domain
	}

	report := p.Builder.Analyze(s.AnalysisInput(start))
	doc, err := transform.DedupeValue(transform.NewDocument(s, report))
	if err != nil {
		return nil, fmt.Errorf("deduplicate %s: %w", domain, err)
	}
	doc.ScanMetadata = scan.Metadata{
		Attempt:   at.Round,
		Cached:    at.UseCache,
		Timestamp: p.now(),
	}

	res, err := transform.Format(doc, transform.RequestID(domain, start), start, p.now().Sub(start))
	if err != nil {
		return nil, err
	}
	logger.Debug("domain scored",
		zap.String("domain", domain),
		zap.Int("attempt", at.Round),
		zap.Float64("quantum_score", res.QuantumScore),
		zap.String("quantum_grade", res.QuantumGrade))
	return res, nil
}
