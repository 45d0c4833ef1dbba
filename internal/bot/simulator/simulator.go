// Package simulator stands in for a real browser so the bot can be
// demonstrated end to end without Chrome.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
)

const (
	DefaultLoginSuccess = 0.9
	DefaultRetryChance  = 0.5
	DefaultPace         = time.Second
)

// Activities are the simulated site actions walked on every cycle.
var Activities = []string{
	"Claiming daily rewards",
	"Playing mini-games",
	"Checking mining status",
	"Updating mining equipment",
	"Collecting bonuses",
}

// Options tune a Simulator. Pace is the unit all simulated delays are
// multiples of. Nil probabilities take the defaults; use Probability to set
// one, including zero.
type Options struct {
	LoginSuccess *float64
	RetryChance  *float64
	Pace         time.Duration
	Seed         uint64
	Logger       *slog.Logger
}

// Simulator implements both the provisioner and automator roles.
type Simulator struct {
	loginSuccess float64
	retryChance  float64
	pace         time.Duration
	logger       *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(opts Options) (*Simulator, error) {
	if opts.Logger == nil {
		return nil, errors.New("simulator: logger is required")
	}
	loginSuccess := valueOr(opts.LoginSuccess, DefaultLoginSuccess)
	retryChance := valueOr(opts.RetryChance, DefaultRetryChance)
	if loginSuccess < 0 || loginSuccess > 1 || retryChance < 0 || retryChance > 1 {
		return nil, fmt.Errorf("simulator: probabilities must be within [0,1]")
	}
	if opts.Pace <= 0 {
		opts.Pace = DefaultPace
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Simulator{
		loginSuccess: loginSuccess,
		retryChance:  retryChance,
		pace:         opts.Pace,
		logger:       opts.Logger.With("component", "simulator"),
		rng:          rand.New(rand.NewPCG(seed, seed>>1|1)),
	}, nil
}

// Acquire returns an in-memory handle after a simulated setup delay.
func (s *Simulator) Acquire(ctx context.Context, report browser.Reporter) (browser.Handle, error) {
	report.Report("Setting up browser (simulation mode)")
	if err := s.wait(ctx, 2*s.pace); err != nil {
		return nil, &browser.Failure{Reason: browser.ReasonAllDriversFailed, Err: err}
	}
	s.logger.Info("simulation: browser setup successful")
	return &Handle{}, nil
}

// Login simulates the form flow. A failed attempt is retried once with
// probability RetryChance.
func (s *Simulator) Login(ctx context.Context, h browser.Handle, creds config.Credentials, report browser.Reporter) (bool, error) {
	ok, err := s.attemptLogin(ctx, h, creds, report)
	if err != nil || ok {
		return ok, err
	}
	if !s.chance(s.retryChance) {
		return false, nil
	}
	s.logger.Info("simulation: retrying login")
	if err := s.wait(ctx, 2*s.pace); err != nil {
		return false, err
	}
	ok, err = s.attemptLogin(ctx, h, creds, report)
	if err == nil && !ok {
		s.logger.Warn("simulation: login failed after retry")
	}
	return ok, err
}

func (s *Simulator) attemptLogin(ctx context.Context, h browser.Handle, creds config.Credentials, report browser.Reporter) (bool, error) {
	steps := []struct {
		action string
		delay  time.Duration
	}{
		{"Navigating to login page (simulation)", 3 * s.pace},
		{"Entering credentials (simulation)", 2 * s.pace},
		{"Submitting login (simulation)", 2 * s.pace},
	}
	if err := h.Navigate(ctx, config.LoginURL); err != nil {
		return false, err
	}
	for _, step := range steps {
		report.Report(step.action)
		if err := s.wait(ctx, step.delay); err != nil {
			return false, err
		}
	}
	s.logger.Info("simulation: credentials submitted", "email", creds.Email)

	if s.chance(s.loginSuccess) {
		if err := h.Navigate(ctx, config.LoginURL+"/game"); err != nil {
			return false, err
		}
		s.logger.Info("simulation: login successful")
		return true, nil
	}
	s.logger.Warn("simulation: login failed (random simulation)")
	return false, nil
}

// PerformActivities walks every simulated activity.
func (s *Simulator) PerformActivities(ctx context.Context, h browser.Handle, report browser.Reporter) (bool, error) {
	if sh, ok := h.(*Handle); ok && sh.closed() {
		return false, errHandleClosed
	}
	report.Report("Performing activities (simulation)")
	for _, activity := range Activities {
		report.Report("Simulation: " + activity)
		if err := s.wait(ctx, s.jitter()); err != nil {
			return false, err
		}
		s.logger.Info("simulation: activity completed", "activity", activity)
	}
	return true, nil
}

// Probability returns a pointer to p for Options.
func Probability(p float64) *float64 { return &p }

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

func (s *Simulator) chance(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

// jitter returns a delay between one and three paces.
func (s *Simulator) jitter() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pace + time.Duration(s.rng.Int64N(int64(2*s.pace)+1))
}

func (s *Simulator) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
