// Package debugapi serves diagnostic endpoints when DEBUG is enabled.
package debugapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/engine"
)

const requestTimeout = 10 * time.Second

// StatusSource reports the bot snapshot.
type StatusSource interface {
	Status() engine.Snapshot
}

// BrowserInspector describes how browsers would be provisioned.
type BrowserInspector interface {
	Locate() (string, error)
	StrategyNames() []string
}

// Options wires the debug router. Browser is nil in simulation mode.
type Options struct {
	Logger      *slog.Logger
	Status      StatusSource
	Browser     BrowserInspector
	Credentials func() config.Credentials
	Config      config.Config
	Probe       browser.Probe
	Started     time.Time
}

type server struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) http.Handler {
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	if opts.Credentials == nil {
		opts.Credentials = config.CredentialsFromEnv
	}
	s := &server{opts: opts, logger: opts.Logger.With("component", "debugapi")}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	router.Get("/healthz", s.handleHealth)
	router.Route("/debug", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/browser", s.handleBrowser)
	})
	return router
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.opts.Started).Round(time.Second).String(),
	})
}

type configSummary struct {
	ListenAddr      string   `json:"listen_addr"`
	DebugListenAddr string   `json:"debug_listen_addr"`
	LogFile         string   `json:"log_file"`
	Simulation      bool     `json:"simulation"`
	CycleInterval   string   `json:"cycle_interval"`
	ExecPath        string   `json:"exec_path"`
	Globs           []string `json:"globs"`
	DebugPort       int      `json:"debug_port"`
	Email           string   `json:"email"`
	PasswordSet     bool     `json:"password_set"`
	APIKeySet       bool     `json:"api_key_set"`
}

func (s *server) handleState(w http.ResponseWriter, _ *http.Request) {
	cfg := s.opts.Config
	creds := s.opts.Credentials()
	respondJSON(w, http.StatusOK, map[string]any{
		"status": s.opts.Status.Status(),
		"config": configSummary{
			ListenAddr:      cfg.ListenAddr,
			DebugListenAddr: cfg.DebugListenAddr,
			LogFile:         cfg.LogFile,
			Simulation:      cfg.Simulation,
			CycleInterval:   cfg.CycleInterval().String(),
			ExecPath:        cfg.Browser.ExecPath,
			Globs:           cfg.Browser.Globs,
			DebugPort:       cfg.Browser.DebugPort,
			Email:           creds.Email,
			PasswordSet:     creds.Password != "",
			APIKeySet:       cfg.APIKey != "",
		},
	})
}

type browserReport struct {
	Simulation  bool                  `json:"simulation"`
	Binary      string                `json:"binary,omitempty"`
	LocateError string                `json:"locate_error,omitempty"`
	Strategies  []string              `json:"strategies"`
	DebugPort   int                   `json:"debug_port"`
	DevTools    *browser.DevToolsInfo `json:"devtools,omitempty"`
	DevToolsErr string                `json:"devtools_error,omitempty"`
}

func (s *server) handleBrowser(w http.ResponseWriter, r *http.Request) {
	report := browserReport{
		Simulation: s.opts.Browser == nil,
		Strategies: []string{},
		DebugPort:  s.opts.Config.Browser.DebugPort,
	}
	if s.opts.Browser != nil {
		report.Strategies = s.opts.Browser.StrategyNames()
		if binary, err := s.opts.Browser.Locate(); err != nil {
			report.LocateError = err.Error()
		} else {
			report.Binary = binary
		}

		// A session is only up while a cycle is running; one attempt is enough.
		probe := s.opts.Probe
		probe.Attempts = 1
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		info, err := probe.Discover(ctx, report.DebugPort)
		cancel()
		if err != nil {
			report.DevToolsErr = err.Error()
		} else {
			report.DevTools = &info
		}
	}
	respondJSON(w, http.StatusOK, report)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
