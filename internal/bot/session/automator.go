// Package session drives the login flow and site activities on a browser
// handle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
)

const (
	DefaultPageTimeout    = 15 * time.Second
	DefaultElementTimeout = 10 * time.Second
	DefaultSettleDuration = 10 * time.Second
)

// Login form selectors.
var (
	BodySelector     = browser.CSS("body")
	EmailSelector    = browser.CSS(`input[name="email"]`)
	PasswordSelector = browser.CSS(`input[name="password"]`)
	SubmitSelector   = browser.XPath(`//button[contains(text(), 'Sign in') or contains(@type, 'submit')]`)
	EntrySelector    = browser.XPath(
		`//button[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'login')` +
			` or contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'sign in')]` +
			` | //a[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'login')]`,
	)
)

// Activity is one clickable site action located by its visible text.
type Activity struct {
	Name     string
	Selector browser.Selector
}

// DefaultActivities returns the mine, games and claim targets in the order
// they are tried.
func DefaultActivities() []Activity {
	names := []string{"mine", "games", "claim"}
	out := make([]Activity, 0, len(names))
	for _, name := range names {
		out = append(out, Activity{Name: name, Selector: browser.TextMatch(name, "button", "a")})
	}
	return out
}

// Params wires an Automator. Zero durations take the defaults.
type Params struct {
	LoginURL       string
	PageTimeout    time.Duration
	ElementTimeout time.Duration
	SettleDuration time.Duration
	Activities     []Activity
	Logger         *slog.Logger
}

// Automator performs login and activities against a handle it does not own.
type Automator struct {
	loginURL       string
	pageTimeout    time.Duration
	elementTimeout time.Duration
	settle         time.Duration
	activities     []Activity
	logger         *slog.Logger
}

func New(params Params) (*Automator, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("session: logger is required")
	}
	if params.LoginURL == "" {
		params.LoginURL = config.LoginURL
	}
	if params.PageTimeout <= 0 {
		params.PageTimeout = DefaultPageTimeout
	}
	if params.ElementTimeout <= 0 {
		params.ElementTimeout = DefaultElementTimeout
	}
	if params.SettleDuration < 0 {
		return nil, fmt.Errorf("session: settle duration must not be negative")
	}
	if params.SettleDuration == 0 {
		params.SettleDuration = DefaultSettleDuration
	}
	if params.Activities == nil {
		params.Activities = DefaultActivities()
	}
	return &Automator{
		loginURL:       params.LoginURL,
		pageTimeout:    params.PageTimeout,
		elementTimeout: params.ElementTimeout,
		settle:         params.SettleDuration,
		activities:     params.Activities,
		logger:         params.Logger.With("component", "session"),
	}, nil
}

// Login signs in with creds and reports whether the site left the login
// page. A false result with a nil error is an inconclusive login; a non-nil
// error means a required element was missing or the handle failed.
func (a *Automator) Login(ctx context.Context, h browser.Handle, creds config.Credentials, report browser.Reporter) (bool, error) {
	if h == nil {
		return false, errors.New("session: no browser handle")
	}

	report.Report("Navigating to login page")
	pageCtx, cancel := context.WithTimeout(ctx, a.pageTimeout)
	err := h.Navigate(pageCtx, a.loginURL)
	if err == nil {
		err = h.WaitReady(pageCtx, BodySelector)
	}
	cancel()
	if err != nil {
		return false, fmt.Errorf("load %s: %w", a.loginURL, err)
	}

	outcome, err := locate(ctx, h, EntrySelector, a.elementTimeout, false)
	if err != nil {
		return false, fmt.Errorf("find login entry: %w", err)
	}
	if outcome == OutcomeFound {
		report.Report("Opening login form")
		if err := a.click(ctx, h, EntrySelector); err != nil {
			a.logger.Warn("login entry button not clickable", "error", err)
		}
	} else {
		a.logger.Info("no login entry button, assuming form is already shown")
	}

	report.Report("Entering credentials")
	if err := a.fill(ctx, h, "email", EmailSelector, creds.Email); err != nil {
		return false, err
	}
	if err := a.fill(ctx, h, "password", PasswordSelector, creds.Password); err != nil {
		return false, err
	}

	outcome, err = locate(ctx, h, SubmitSelector, a.elementTimeout, true)
	if err != nil {
		return false, fmt.Errorf("find submit: %w", err)
	}
	if outcome == OutcomeMissing {
		return false, fmt.Errorf("%w: submit control", ErrRequiredElementMissing)
	}
	report.Report("Submitting login form")
	if err := a.click(ctx, h, SubmitSelector); err != nil {
		return false, fmt.Errorf("submit: %w", err)
	}

	report.Report("Waiting for login redirect")
	if err := sleep(ctx, a.settle); err != nil {
		return false, err
	}

	report.Report("Verifying login")
	locCtx, cancel := context.WithTimeout(ctx, a.elementTimeout)
	location, err := h.Location(locCtx)
	cancel()
	if err != nil {
		a.logger.Warn("could not read location after login", "error", err)
		return false, nil
	}
	if strings.Contains(strings.ToLower(location), "login") {
		a.logger.Warn("login may have failed", "location", location)
		return false, nil
	}
	a.logger.Info("login successful", "location", location)
	return true, nil
}

// PerformActivities clicks the first visible activity target and stops.
// Finding nothing is a success.
func (a *Automator) PerformActivities(ctx context.Context, h browser.Handle, report browser.Reporter) (bool, error) {
	if h == nil {
		return false, errors.New("session: no browser handle")
	}
	report.Report("Performing activities")

	for _, activity := range a.activities {
		checkCtx, cancel := context.WithTimeout(ctx, a.elementTimeout)
		visible, err := h.Visible(checkCtx, activity.Selector)
		cancel()
		if err != nil {
			return false, fmt.Errorf("search %s: %w", activity.Name, err)
		}
		if !visible {
			a.logger.Debug("activity not available", "activity", activity.Name)
			continue
		}

		report.Report("Activity: " + activity.Name)
		if err := a.click(ctx, h, activity.Selector); err != nil {
			return false, fmt.Errorf("click %s: %w", activity.Name, err)
		}
		a.logger.Info("activity performed", "activity", activity.Name)
		return true, nil
	}

	a.logger.Info("no activities available")
	return true, nil
}

func (a *Automator) fill(ctx context.Context, h browser.Handle, field string, sel browser.Selector, value string) error {
	outcome, err := locate(ctx, h, sel, a.elementTimeout, true)
	if err != nil {
		return fmt.Errorf("find %s field: %w", field, err)
	}
	if outcome == OutcomeMissing {
		return fmt.Errorf("%w: %s field", ErrRequiredElementMissing, field)
	}
	typeCtx, cancel := context.WithTimeout(ctx, a.elementTimeout)
	defer cancel()
	if err := h.ClearAndType(typeCtx, sel, value); err != nil {
		return fmt.Errorf("fill %s field: %w", field, err)
	}
	return nil
}

func (a *Automator) click(ctx context.Context, h browser.Handle, sel browser.Selector) error {
	clickCtx, cancel := context.WithTimeout(ctx, a.elementTimeout)
	defer cancel()
	return h.Click(clickCtx, sel)
}
