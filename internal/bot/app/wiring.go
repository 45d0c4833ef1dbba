package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/control"
	"github.com/ccheshirecat/rollerbot/internal/bot/engine"
	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus"
	"github.com/ccheshirecat/rollerbot/internal/bot/session"
	"github.com/ccheshirecat/rollerbot/internal/bot/simulator"
)

// Components are the bot collaborators built from configuration.
type Components struct {
	Provisioner engine.Provisioner
	Automator   engine.Automator
	// Inspector is nil in simulation mode.
	Inspector *browser.Provisioner
}

// BuildComponents selects real browser automation or the simulator.
func BuildComponents(cfg config.Config, logger *slog.Logger, browserLog *os.File) (Components, error) {
	if cfg.Simulation {
		sim, err := simulator.New(simulator.Options{Logger: logger})
		if err != nil {
			return Components{}, err
		}
		logger.Warn("simulation mode enabled; no browser will be launched")
		return Components{Provisioner: sim, Automator: sim}, nil
	}

	launch := browser.LaunchOptions{
		UserAgent: cfg.Browser.UserAgent,
		DebugPort: cfg.Browser.DebugPort,
	}
	paths := append([]string{cfg.Browser.ExecPath}, browser.DefaultCandidates...)
	prov, err := browser.NewProvisioner(browser.Params{
		Locator: browser.Locator{Paths: paths, Globs: cfg.Browser.Globs},
		Strategies: []browser.Strategy{
			&browser.ExecStrategy{Options: launch, Timeout: cfg.Browser.LaunchTimeout, Logger: logger},
			&browser.ProcessStrategy{
				Options: launch,
				Spawner: browser.ExecSpawner{Output: browserLog},
				Timeout: cfg.Browser.LaunchTimeout,
				Logger:  logger,
			},
		},
		Logger: logger,
	})
	if err != nil {
		return Components{}, fmt.Errorf("init provisioner: %w", err)
	}

	auto, err := session.New(session.Params{LoginURL: config.LoginURL, Logger: logger})
	if err != nil {
		return Components{}, fmt.Errorf("init automator: %w", err)
	}
	return Components{Provisioner: prov, Automator: auto, Inspector: prov}, nil
}

// BotFactory returns a control.Factory producing a fresh bot per start.
func BotFactory(cfg config.Config, comps Components, creds func() config.Credentials, bus eventbus.Bus, logger *slog.Logger) control.Factory {
	return func() (control.Bot, error) {
		return engine.NewBot(engine.BotParams{
			Provisioner: comps.Provisioner,
			Automator:   comps.Automator,
			Credentials: creds,
			Interval:    cfg.CycleInterval,
			Bus:         bus,
			Logger:      logger,
		})
	}
}
