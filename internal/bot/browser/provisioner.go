package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SmokeTestURL is an inert document used to confirm a new handle responds.
const SmokeTestURL = "data:text/html,<html><body><h1>Test</h1></body></html>"

const DefaultSmokeTimeout = 15 * time.Second

var (
	// ErrBinaryNotFound means no browser binary exists at the configured
	// paths or globs. No strategy is attempted in that case.
	ErrBinaryNotFound = errors.New("browser: binary not found")
	// ErrAllDriversFailed means every strategy failed to produce a handle.
	ErrAllDriversFailed = errors.New("browser: all driver strategies failed")
	// ErrSmokeTest means a handle was created but did not respond.
	ErrSmokeTest = errors.New("browser: smoke test failed")
)

// Reason classifies provisioning failures.
type Reason string

const (
	ReasonBinaryNotFound   Reason = "BinaryNotFound"
	ReasonAllDriversFailed Reason = "AllDriversFailed"
	ReasonSmokeTestFailed  Reason = "SmokeTestFailed"
)

// Failure is the only error type Acquire returns.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches the sentinel that corresponds to the failure reason.
func (f *Failure) Is(target error) bool {
	switch f.Reason {
	case ReasonBinaryNotFound:
		return target == ErrBinaryNotFound
	case ReasonAllDriversFailed:
		return target == ErrAllDriversFailed
	case ReasonSmokeTestFailed:
		return target == ErrSmokeTest
	}
	return false
}

// Strategy is one way of obtaining a working handle for a located binary.
// Implementations bound their own runtime.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, binary string) (Handle, error)
}

// Params wires a Provisioner.
type Params struct {
	Locator      Locator
	Strategies   []Strategy
	SmokeTimeout time.Duration
	Logger       *slog.Logger
}

// Provisioner acquires handles by trying its strategies in order.
type Provisioner struct {
	locate       func() (string, error)
	strategies   []Strategy
	smokeTimeout time.Duration
	logger       *slog.Logger
}

// NewProvisioner validates params and returns a Provisioner.
func NewProvisioner(params Params) (*Provisioner, error) {
	if len(params.Strategies) == 0 {
		return nil, fmt.Errorf("browser: at least one strategy is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("browser: logger is required")
	}
	if params.SmokeTimeout <= 0 {
		params.SmokeTimeout = DefaultSmokeTimeout
	}
	return &Provisioner{
		locate:       params.Locator.Locate,
		strategies:   params.Strategies,
		smokeTimeout: params.SmokeTimeout,
		logger:       params.Logger.With("component", "provisioner"),
	}, nil
}

// StrategyNames lists strategies in attempt order.
func (p *Provisioner) StrategyNames() []string {
	names := make([]string, 0, len(p.strategies))
	for _, s := range p.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Locate resolves the browser binary without launching anything.
func (p *Provisioner) Locate() (string, error) { return p.locate() }

// Acquire returns a responsive handle or a *Failure. Strategies run once
// each, in order; the first handle that passes the smoke test is returned.
func (p *Provisioner) Acquire(ctx context.Context, report Reporter) (Handle, error) {
	report.Report("Locating browser binary")
	binary, err := p.locate()
	if err != nil {
		p.logger.Error("browser binary not found", "error", err)
		return nil, &Failure{Reason: ReasonBinaryNotFound, Err: err}
	}
	p.logger.Info("using browser binary", "path", binary)

	var errs []error
	for _, strategy := range p.strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report.Report(fmt.Sprintf("Setting up browser (%s)", strategy.Name()))
		handle, err := p.attempt(ctx, strategy, binary)
		if err != nil {
			p.logger.Warn("browser strategy failed", "strategy", strategy.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}

		report.Report("Testing browser session")
		if err := p.smokeTest(ctx, handle); err != nil {
			p.logger.Error("browser smoke test failed", "strategy", strategy.Name(), "error", err)
			if closeErr := handle.Close(); closeErr != nil {
				p.logger.Warn("close after failed smoke test", "error", closeErr)
			}
			return nil, &Failure{Reason: ReasonSmokeTestFailed, Err: err}
		}
		p.logger.Info("browser session ready", "strategy", strategy.Name())
		return handle, nil
	}

	return nil, &Failure{Reason: ReasonAllDriversFailed, Err: errors.Join(errs...)}
}

// attempt runs one strategy, converting panics into errors.
func (p *Provisioner) attempt(ctx context.Context, strategy Strategy, binary string) (handle Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			handle = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	handle, err = strategy.Attempt(ctx, binary)
	if err == nil && handle == nil {
		err = errors.New("strategy returned no handle")
	}
	return handle, err
}

func (p *Provisioner) smokeTest(ctx context.Context, handle Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	smokeCtx, cancel := context.WithTimeout(ctx, p.smokeTimeout)
	defer cancel()
	return handle.Navigate(smokeCtx, SmokeTestURL)
}
