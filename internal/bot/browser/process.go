package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Process is a browser running outside chromedp's control.
type Process interface {
	PID() int
	// Terminate stops the process and everything it spawned.
	Terminate(ctx context.Context) error
}

// Spawner starts a browser binary as a raw OS process.
type Spawner interface {
	Spawn(ctx context.Context, binary string, args []string) (Process, error)
}

// ProcessStrategy spawns the browser itself, waits for its DevTools
// endpoint, then attaches chromedp to the running process.
type ProcessStrategy struct {
	Options LaunchOptions
	Spawner Spawner
	Probe   Probe
	Timeout time.Duration
	Logger  *slog.Logger
}

var _ Strategy = (*ProcessStrategy)(nil)

func (s *ProcessStrategy) Name() string { return "spawned-process" }

func (s *ProcessStrategy) Attempt(ctx context.Context, binary string) (Handle, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	spawner := s.Spawner
	if spawner == nil {
		spawner = ExecSpawner{}
	}

	opts := s.Options.withDefaults()
	if opts.UserDataDir == "" {
		dir, err := os.MkdirTemp("", "rollerbot-profile-*")
		if err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
		opts.UserDataDir = dir
	}

	proc, err := spawner.Spawn(ctx, binary, opts.Args())
	if err != nil {
		if s.Options.UserDataDir == "" {
			_ = os.RemoveAll(opts.UserDataDir)
		}
		return nil, fmt.Errorf("spawn: %w", err)
	}
	logger.Info("browser process spawned", "pid", proc.PID(), "port", opts.DebugPort)

	release := func() error {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := proc.Terminate(stopCtx)
		if s.Options.UserDataDir == "" {
			err = errors.Join(err, os.RemoveAll(opts.UserDataDir))
		}
		return err
	}

	timeout := timeoutOr(s.Timeout, DefaultLaunchTimeout)
	probeCtx, cancelProbe := context.WithTimeout(ctx, timeout)
	info, err := s.Probe.Discover(probeCtx, opts.DebugPort)
	cancelProbe()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("devtools: %w", err), release())
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), info.WebSocketURL)
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(chromedpLogf(logger)))
	if err := startWithin(ctx, tabCtx, timeout); err != nil {
		cancel()
		allocCancel()
		return nil, errors.Join(fmt.Errorf("attach: %w", err), release())
	}
	logger.Info("attached to browser process", "pid", proc.PID(), "browser", info.BrowserVersion)
	return newChromeHandle(tabCtx, cancel, allocCancel, logger, release), nil
}
