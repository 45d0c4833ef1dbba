package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus"
)

// BotParams wires a Bot.
type BotParams struct {
	Provisioner Provisioner
	Automator   Automator
	Credentials func() config.Credentials
	Interval    func() time.Duration
	Backoff     time.Duration
	Bus         eventbus.Bus
	Logger      *slog.Logger
}

// Bot bundles the state, engine and supervisor of one start/stop lifetime.
type Bot struct {
	state      *State
	engine     *Engine
	supervisor *Supervisor
}

// NewBot returns a bot whose state is already marked running.
func NewBot(params BotParams) (*Bot, error) {
	state := NewState()
	eng, err := New(Params{
		State:       state,
		Provisioner: params.Provisioner,
		Automator:   params.Automator,
		Credentials: params.Credentials,
		Bus:         params.Bus,
		Logger:      params.Logger,
	})
	if err != nil {
		return nil, err
	}
	sup, err := NewSupervisor(SupervisorParams{
		State:    state,
		Cycler:   eng,
		Interval: params.Interval,
		Backoff:  params.Backoff,
		Logger:   params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return &Bot{state: state, engine: eng, supervisor: sup}, nil
}

// Run executes the supervisor loop on the calling goroutine.
func (b *Bot) Run(ctx context.Context) { b.supervisor.Run(ctx) }

// Stop clears the running flag, closes any in-flight session and wakes the
// supervisor. It reports whether the bot was running.
func (b *Bot) Stop() bool {
	wasRunning := b.state.running.Swap(false)
	b.engine.ForceCleanup()
	b.supervisor.Wake()
	return wasRunning
}

func (b *Bot) Running() bool { return b.state.Running() }

func (b *Bot) Snapshot() Snapshot { return b.state.Snapshot() }
