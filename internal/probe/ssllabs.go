package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-pqc/internal/shared/constants"
	"github.com/khanhnv2901/seca-pqc/internal/transform"
)

// DefaultCommand is the assessment tool looked up on PATH.
const DefaultCommand = "ssllabs-scan"

// waitDelay bounds how long output pipes are drained after the tool is killed.
const waitDelay = 2 * time.Second

// rateLimitMarkers are matched against the lowercased stderr of the tool.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"too many requests",
	"assessment failed: http 429",
	"service overloaded",
	"throttled",
	"try again later",
}

// Tool runs one TLS assessment.
type Tool interface {
	Scan(ctx context.Context, domain string, useCache bool, timeout time.Duration) ([]transform.Host, error)
}

// Config configures the ssllabs-scan runner.
type Config struct {
	Command string
	Args    []string
	Env     map[string]string
	Logger  *zap.Logger
}

// SSLLabs shells out to ssllabs-scan.
type SSLLabs struct {
	command string
	args    []string
	env     map[string]string
	logger  *zap.Logger
}

// NewSSLLabs creates a runner for the given config.
func NewSSLLabs(cfg Config) *SSLLabs {
	command := cfg.Command
	if command == "" {
		command = DefaultCommand
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSLLabs{
		command: command,
		args:    cfg.Args,
		env:     cfg.Env,
		logger:  logger,
	}
}

// Args returns the argument list for one run.
func (s *SSLLabs) Args(domain string, useCache bool) []string {
	args := append([]string{}, s.args...)
	args = append(args, "--quiet")
	if useCache {
		args = append(args, "--usecache")
	}
	return append(args, domain)
}

// Scan runs the tool and decodes its report.
func (s *SSLLabs) Scan(ctx context.Context, domain string, useCache bool, timeout time.Duration) ([]transform.Host, error) {
	scanCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	s.logger.Info("scanning",
		zap.String("domain", domain),
		zap.Bool("cache", useCache),
		zap.Duration("timeout", timeout))

	cmd := exec.CommandContext(scanCtx, s.command, s.Args(domain, useCache)...)
	cmd.Env = os.Environ()
	for k, v := range s.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Domain: domain, Timeout: timeout}
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &ToolError{Domain: domain, Message: s.command + " not found"}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "scan failed"
		}
		if IsRateLimitMessage(msg) {
			return nil, &RateLimitedError{Domain: domain}
		}
		if len(msg) > constants.ToolErrorLimitBytes {
			msg = msg[:constants.ToolErrorLimitBytes]
		}
		return nil, &ToolError{Domain: domain, Message: msg}
	}

	hosts, err := transform.Parse(output)
	if err != nil {
		return nil, &InvalidOutputError{Domain: domain, Err: err}
	}
	return hosts, nil
}

// IsRateLimitMessage reports whether tool output signals throttling.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
