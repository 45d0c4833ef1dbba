package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const DefaultLaunchTimeout = 30 * time.Second

// ExecStrategy lets chromedp launch and own the browser process.
type ExecStrategy struct {
	Options LaunchOptions
	Timeout time.Duration
	Logger  *slog.Logger
}

var _ Strategy = (*ExecStrategy)(nil)

func (s *ExecStrategy) Name() string { return "exec-allocator" }

func (s *ExecStrategy) Attempt(ctx context.Context, binary string) (Handle, error) {
	logger := s.logger()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), s.Options.allocatorOptions(binary)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(chromedpLogf(logger)))

	if err := startWithin(ctx, tabCtx, timeoutOr(s.Timeout, DefaultLaunchTimeout)); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch: %w", err)
	}
	return newChromeHandle(tabCtx, cancel, allocCancel, logger, nil), nil
}

func (s *ExecStrategy) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// startWithin primes the browser behind tabCtx. The first chromedp.Run ties
// the browser lifetime to its context, so it runs on tabCtx itself and the
// bound is enforced from outside.
func startWithin(ctx, tabCtx context.Context, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("browser did not start within %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func chromedpLogf(logger *slog.Logger) func(string, ...any) {
	return func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...), "stream", "chromedp")
	}
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
