package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBackoff is the pause after a cycle escapes with a panic.
const DefaultBackoff = 60 * time.Second

// Cycler runs one cycle.
type Cycler interface {
	RunCycle(ctx context.Context)
}

// SupervisorParams wires a Supervisor.
type SupervisorParams struct {
	State    *State
	Cycler   Cycler
	Interval func() time.Duration
	Backoff  time.Duration
	Logger   *slog.Logger
}

// Supervisor repeats cycles while the bot is running, sleeping the cycle
// interval between them.
type Supervisor struct {
	state    *State
	cycler   Cycler
	interval func() time.Duration
	backoff  time.Duration
	logger   *slog.Logger
	wake     chan struct{}
}

func NewSupervisor(params SupervisorParams) (*Supervisor, error) {
	if params.State == nil || params.Cycler == nil {
		return nil, fmt.Errorf("supervisor: state and cycler are required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("supervisor: logger is required")
	}
	if params.Interval == nil {
		return nil, fmt.Errorf("supervisor: interval source is required")
	}
	if params.Backoff <= 0 {
		params.Backoff = DefaultBackoff
	}
	return &Supervisor{
		state:    params.State,
		cycler:   params.Cycler,
		interval: params.Interval,
		backoff:  params.Backoff,
		logger:   params.Logger.With("component", "supervisor"),
		wake:     make(chan struct{}, 1),
	}, nil
}

// Run blocks until the bot stops running or ctx is done. Cycles never
// overlap.
func (s *Supervisor) Run(ctx context.Context) {
	s.logger.Info("supervisor started")
	defer s.logger.Info("supervisor exited")

	for s.state.Running() && ctx.Err() == nil {
		pause, ok := s.runOnce(ctx)
		if !ok {
			s.logger.Warn("backing off after unexpected failure", "backoff", pause)
		} else if !s.state.Running() {
			return
		}
		if !s.sleep(ctx, pause) {
			return
		}
	}
}

// Wake interrupts a pending sleep so Run can observe a stop promptly.
func (s *Supervisor) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Supervisor) runOnce(ctx context.Context) (pause time.Duration, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			total := s.state.recordError()
			s.logger.Error("error in bot cycle", "panic", r, "error_count", total)
			pause, ok = s.backoff, false
		}
	}()
	s.cycler.RunCycle(ctx)
	return s.interval(), true
}

// sleep waits for d and reports whether the loop should continue.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return s.state.Running() && ctx.Err() == nil
	}
	s.logger.Debug("sleeping until next cycle", "interval", d)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.wake:
		return s.state.Running()
	case <-timer.C:
		return true
	}
}
