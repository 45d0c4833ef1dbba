package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ccheshirecat/rollerbot/internal/bot/app"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/control"
	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus/memory"
	"github.com/ccheshirecat/rollerbot/internal/bot/httpapi"
	"github.com/ccheshirecat/rollerbot/internal/shared/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bootLogger := logging.New("rollerbotd")

	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger.Error("load config", "error", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.Open("rollerbotd", logging.Options{File: cfg.LogFile, Debug: cfg.Debug})
	if err != nil {
		bootLogger.Error("open log file", "path", cfg.LogFile, "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	browserLog, err := os.OpenFile(filepath.Join(filepath.Dir(cfg.LogFile), "browser.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("browser output will be discarded", "error", err)
		browserLog = nil
	} else {
		defer browserLog.Close()
	}

	comps, err := app.BuildComponents(cfg, logger, browserLog)
	if err != nil {
		logger.Error("init bot", "error", err)
		os.Exit(1)
	}

	creds := config.NewCredentialStore(nil)
	if !creds.Credentials().Complete() {
		logger.Warn("credentials not configured; set ROLLERCOIN_EMAIL and ROLLERCOIN_PASSWORD or use /config")
	}

	events := memory.New()
	controller, err := control.New(app.BotFactory(cfg, comps, creds.Credentials, events, logger), events, logger)
	if err != nil {
		logger.Error("init controller", "error", err)
		os.Exit(1)
	}

	handler := httpapi.New(httpapi.Options{
		Logger:      logger,
		Controller:  controller,
		Credentials: creds,
		Bus:         events,
		LogFile:     cfg.LogFile,
		APIKey:      cfg.APIKey,
		Simulation:  cfg.Simulation,
	})

	debugHandler := debugHandlerFor(cfg, comps, controller, creds, logger)

	daemon, err := app.New(cfg, logger, controller, handler, debugHandler)
	if err != nil {
		logger.Error("init app", "error", err)
		os.Exit(1)
	}

	logger.Info("rollerbot starting", "listen", cfg.ListenAddr, "debug", cfg.Debug, "simulation", cfg.Simulation, "cycle_interval", cfg.CycleInterval())
	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon exit", "error", err)
		os.Exit(1)
	}
}
