package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/config"
)

// Controller is the bot lifecycle the daemon tears down on exit.
type Controller interface {
	Shutdown(ctx context.Context) error
}

// App runs the operator and debug listeners around one bot controller.
type App struct {
	logger       *slog.Logger
	controller   Controller
	servers      []namedServer
	shutdownWait time.Duration

	// baseCtx parents every request context. Canceling it ends long-lived
	// event streams, which http.Server.Shutdown does not interrupt.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

type namedServer struct {
	name   string
	server *http.Server
}

// New constructs the daemon. A nil debug handler disables the debug
// listener.
func New(cfg config.Config, logger *slog.Logger, controller Controller, operator, debug http.Handler) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if controller == nil {
		return nil, fmt.Errorf("controller must not be nil")
	}
	if operator == nil {
		return nil, fmt.Errorf("operator handler must not be nil")
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	a := &App{
		logger:       logger.With("component", "app"),
		controller:   controller,
		shutdownWait: 15 * time.Second,
		baseCtx:      baseCtx,
		cancelBase:   cancelBase,
	}
	a.servers = append(a.servers, namedServer{name: "api", server: &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           operator,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Event streams stay open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		BaseContext:  a.baseContext,
	}})
	if debug != nil {
		a.servers = append(a.servers, namedServer{name: "debug", server: &http.Server{
			Addr:         cfg.DebugListenAddr,
			Handler:      debug,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			BaseContext:  a.baseContext,
		}})
	}
	return a, nil
}

func (a *App) baseContext(net.Listener) context.Context { return a.baseCtx }

// Run serves until ctx is canceled or a listener fails, then stops the bot
// and drains the servers.
func (a *App) Run(ctx context.Context) error {
	listeners := make([]net.Listener, 0, len(a.servers))
	for _, s := range a.servers {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return fmt.Errorf("listen %s %s: %w", s.name, s.server.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	errCh := make(chan error, len(a.servers))
	for i, s := range a.servers {
		ln := listeners[i]
		go func() {
			a.logger.Info("server listening", "server", s.name, "addr", ln.Addr().String())
			if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s server: %w", s.name, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownWait)
	defer cancel()
	if err := a.controller.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("bot shutdown", "error", err)
	}
	a.cancelBase()
	for _, s := range a.servers {
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http shutdown", "server", s.name, "error", err)
		}
	}
	return runErr
}
