package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus"
	"github.com/ccheshirecat/rollerbot/internal/bot/events"
)

// Provisioner hands out browser sessions.
type Provisioner interface {
	Acquire(ctx context.Context, report browser.Reporter) (browser.Handle, error)
}

// Automator performs the site flows on a session.
type Automator interface {
	Login(ctx context.Context, h browser.Handle, creds config.Credentials, report browser.Reporter) (bool, error)
	PerformActivities(ctx context.Context, h browser.Handle, report browser.Reporter) (bool, error)
}

const (
	ActionSettingUp = "Setting up browser"
	ActionCompleted = "Cycle completed"
)

var (
	errStopped      = errors.New("bot stopped")
	errLoginRefused = errors.New("login failed")
)

// Params wires an Engine.
type Params struct {
	State       *State
	Provisioner Provisioner
	Automator   Automator
	Credentials func() config.Credentials
	Bus         eventbus.Bus
	Logger      *slog.Logger
	Now         func() time.Time
}

// Engine runs one provision, login, activities, cleanup cycle at a time.
type Engine struct {
	state       *State
	provisioner Provisioner
	automator   Automator
	credentials func() config.Credentials
	bus         eventbus.Bus
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	inflight browser.Handle
	halted   bool
}

func New(params Params) (*Engine, error) {
	if params.State == nil {
		return nil, fmt.Errorf("engine: state is required")
	}
	if params.Provisioner == nil {
		return nil, fmt.Errorf("engine: provisioner is required")
	}
	if params.Automator == nil {
		return nil, fmt.Errorf("engine: automator is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("engine: logger is required")
	}
	if params.Credentials == nil {
		params.Credentials = config.CredentialsFromEnv
	}
	if params.Bus == nil {
		params.Bus = eventbus.Nop{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Engine{
		state:       params.State,
		provisioner: params.Provisioner,
		automator:   params.Automator,
		credentials: params.Credentials,
		bus:         params.Bus,
		logger:      params.Logger.With("component", "engine"),
		now:         params.Now,
	}, nil
}

// State exposes the counters this engine mutates.
func (e *Engine) State() *State { return e.state }

// RunCycle performs one cycle. It never panics and never returns an error;
// outcomes land in State, the log and the event bus.
func (e *Engine) RunCycle(ctx context.Context) {
	if !e.state.Running() {
		return
	}

	c := &cycle{engine: e, id: uuid.NewString(), started: e.now()}
	e.logger.Info("starting new bot cycle", "cycle_id", c.id)
	c.publish(ctx, events.TypeCycleStarted, "", events.StatusRunning)

	var handle browser.Handle
	defer func() {
		e.release(handle)
	}()

	if err := c.run(ctx, &handle); err != nil {
		total := e.state.recordError()
		reason := err.Error()
		e.state.SetAction(failureAction(reason))
		e.logger.Error("bot cycle failed", "cycle_id", c.id, "error", err, "error_count", total)
		c.publish(ctx, events.TypeCycleFailed, reason, events.StatusFailed)
		return
	}

	runs := e.state.recordSuccess(e.now())
	e.state.SetAction(ActionCompleted)
	e.logger.Info("bot cycle completed successfully", "cycle_id", c.id, "total_runs", runs, "duration", e.now().Sub(c.started))
	c.publish(ctx, events.TypeCycleCompleted, fmt.Sprintf("total runs: %d", runs), events.StatusIdle)
}

// ForceCleanup closes the in-flight handle, if any, and makes the engine
// close any handle acquired afterwards.
func (e *Engine) ForceCleanup() {
	e.mu.Lock()
	h := e.inflight
	e.inflight = nil
	e.halted = true
	e.mu.Unlock()

	if h != nil {
		e.logger.Info("force-closing in-flight browser session")
		if err := h.Close(); err != nil {
			e.logger.Error("error during driver cleanup", "error", err)
		}
	}
}

func (e *Engine) adopt(h browser.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halted || !e.state.Running() {
		return false
	}
	e.inflight = h
	return true
}

func (e *Engine) release(h browser.Handle) {
	if h == nil {
		return
	}
	e.mu.Lock()
	if e.inflight == h {
		e.inflight = nil
	}
	e.mu.Unlock()

	if err := h.Close(); err != nil {
		e.logger.Error("error during driver cleanup", "error", err)
		return
	}
	e.logger.Info("driver cleanup completed")
}

type cycle struct {
	engine  *Engine
	id      string
	started time.Time
}

func (c *cycle) run(ctx context.Context, handle *browser.Handle) error {
	e := c.engine
	report := c.reporter(ctx)

	e.state.SetAction(ActionSettingUp)
	var h browser.Handle
	err := guard("provision", func() error {
		var err error
		h, err = e.provisioner.Acquire(ctx, report)
		return err
	})
	if err != nil {
		var failure *browser.Failure
		if errors.As(err, &failure) {
			return fmt.Errorf("failed to setup browser (%s): %w", failure.Reason, failure.Err)
		}
		return fmt.Errorf("failed to setup browser: %w", err)
	}
	*handle = h
	if !e.adopt(h) {
		return errStopped
	}

	var loggedIn bool
	err = guard("login", func() error {
		var err error
		loggedIn, err = e.automator.Login(ctx, h, e.credentials(), report)
		return err
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !loggedIn {
		return errLoginRefused
	}

	var ok bool
	err = guard("activities", func() error {
		var err error
		ok, err = e.automator.PerformActivities(ctx, h, report)
		return err
	})
	if err != nil || !ok {
		e.logger.Warn("some activities failed", "cycle_id", c.id, "error", err)
	}
	return nil
}

// reporter records the step in State and on the event bus.
func (c *cycle) reporter(ctx context.Context) browser.Reporter {
	return func(action string) {
		c.engine.state.SetAction(action)
		c.engine.logger.Debug("current action", "cycle_id", c.id, "action", action)
		c.publish(ctx, events.TypeAction, action, events.StatusRunning)
	}
}

func (c *cycle) publish(ctx context.Context, typ, message string, status events.Status) {
	e := c.engine
	evt := events.BotEvent{
		ID:        uuid.NewString(),
		CycleID:   c.id,
		Type:      typ,
		Status:    status,
		Timestamp: e.now().UTC(),
	}
	if typ == events.TypeAction {
		evt.Action = message
	} else {
		evt.Action = e.state.CurrentAction()
		evt.Message = message
	}
	if err := e.bus.Publish(context.WithoutCancel(ctx), events.TopicBotEvents, evt); err != nil {
		e.logger.Warn("publish event", "type", typ, "error", err)
	}
}

// failureAction renders a cycle failure for current_action, e.g.
// "Error: Login failed".
func failureAction(reason string) string {
	if reason == "" {
		return "Error"
	}
	r, size := utf8.DecodeRuneInString(reason)
	return "Error: " + string(unicode.ToUpper(r)) + reason[size:]
}

// guard converts a panic in step into an error.
func guard(step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", step, r)
		}
	}()
	return fn()
}
