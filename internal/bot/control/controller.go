// Package control owns the bot worker and exposes idempotent start/stop.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ccheshirecat/rollerbot/internal/bot/engine"
	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus"
	"github.com/ccheshirecat/rollerbot/internal/bot/events"
)

// Bot is one start/stop lifetime of the worker.
type Bot interface {
	Run(ctx context.Context)
	Stop() bool
	Running() bool
	Snapshot() engine.Snapshot
}

// Factory builds a fresh Bot for every start.
type Factory func() (Bot, error)

// Controller serializes start and stop requests from the operator
// surfaces. Status reads go through an atomic pointer and never wait on
// start, stop or the worker.
type Controller struct {
	factory Factory
	bus     eventbus.Bus
	logger  *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[worker]
}

// worker is one running Bot and the goroutine driving it.
type worker struct {
	bot    Bot
	cancel context.CancelFunc
	done   chan struct{}
}

func New(factory Factory, bus eventbus.Bus, logger *slog.Logger) (*Controller, error) {
	if factory == nil {
		return nil, errors.New("control: factory is required")
	}
	if logger == nil {
		return nil, errors.New("control: logger is required")
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Controller{factory: factory, bus: bus, logger: logger.With("component", "controller")}, nil
}

// Start launches a new worker. It returns false without error when the bot
// is already running.
func (c *Controller) Start() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	if prev != nil && prev.bot.Running() {
		c.logger.Warn("bot is already running")
		return false, nil
	}
	if prev != nil {
		// The previous worker may still be inside a step; cycles must not overlap.
		<-prev.done
	}

	bot, err := c.factory()
	if err != nil {
		c.logger.Error("error starting bot", "error", err)
		return false, fmt.Errorf("control: start bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{bot: bot, cancel: cancel, done: make(chan struct{})}
	c.current.Store(w)

	go func() {
		defer close(w.done)
		bot.Run(ctx)
	}()

	c.logger.Info("bot started by user")
	c.publish(events.TypeBotStarted, "bot started", events.StatusRunning)
	return true, nil
}

// Stop clears the running flag, closes any in-flight browser session and
// cancels the worker's wait. It returns false when nothing was running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.current.Load()
	if w == nil || !w.bot.Running() {
		c.logger.Warn("bot is not running")
		return false
	}
	w.cancel()
	w.bot.Stop()
	c.logger.Info("bot stopped by user")
	c.publish(events.TypeBotStopped, "bot stopped", events.StatusStopped)
	return true
}

// Shutdown stops the bot and waits for the worker to exit.
func (c *Controller) Shutdown(ctx context.Context) error {
	w := c.current.Load()
	if w == nil {
		return nil
	}
	w.cancel()
	w.bot.Stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("control: worker did not exit: %w", ctx.Err())
	}
}

// Running reports whether a worker is active.
func (c *Controller) Running() bool {
	w := c.current.Load()
	return w != nil && w.bot.Running()
}

// Status returns the current bot snapshot, or the idle snapshot when no
// bot was ever started.
func (c *Controller) Status() engine.Snapshot {
	w := c.current.Load()
	if w == nil {
		return engine.IdleSnapshot()
	}
	return w.bot.Snapshot()
}

func (c *Controller) publish(typ, message string, status events.Status) {
	evt := events.BotEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if err := c.bus.Publish(context.Background(), events.TopicBotEvents, evt); err != nil {
		c.logger.Warn("publish event", "type", typ, "error", err)
	}
}
