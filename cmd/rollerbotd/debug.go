package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/app"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/control"
	"github.com/ccheshirecat/rollerbot/internal/bot/debugapi"
)

// debugHandlerFor returns nil unless DEBUG is enabled.
func debugHandlerFor(cfg config.Config, comps app.Components, controller *control.Controller, creds *config.CredentialStore, logger *slog.Logger) http.Handler {
	if !cfg.Debug {
		return nil
	}
	opts := debugapi.Options{
		Logger:      logger,
		Status:      controller,
		Credentials: creds.Credentials,
		Config:      cfg,
		Started:     time.Now(),
	}
	if comps.Inspector != nil {
		opts.Browser = comps.Inspector
	}
	return debugapi.New(opts)
}
