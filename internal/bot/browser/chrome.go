package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// chromeHandle drives a Chrome tab through chromedp.
type chromeHandle struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger

	// release runs after the chromedp contexts are torn down, e.g. to reap
	// a browser process spawned outside chromedp.
	release func() error

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

var _ Handle = (*chromeHandle)(nil)

func newChromeHandle(ctx context.Context, cancel, allocCancel context.CancelFunc, logger *slog.Logger, release func() error) *chromeHandle {
	return &chromeHandle{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
		release:     release,
	}
}

func (h *chromeHandle) Navigate(ctx context.Context, url string) error {
	return h.run(ctx, "navigate", chromedp.Navigate(url))
}

func (h *chromeHandle) WaitReady(ctx context.Context, sel Selector) error {
	return h.run(ctx, "wait_ready", chromedp.WaitReady(sel.Expr, by(sel)))
}

func (h *chromeHandle) WaitVisible(ctx context.Context, sel Selector) error {
	return h.run(ctx, "wait_visible", chromedp.WaitVisible(sel.Expr, by(sel)))
}

func (h *chromeHandle) Visible(ctx context.Context, sel Selector) (bool, error) {
	var visible bool
	err := h.run(ctx, "visible", chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(sel.Expr, &nodes, by(sel), chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		for _, node := range nodes {
			// Nodes without a box model are not rendered.
			if _, err := dom.GetBoxModel().WithNodeID(node.NodeID).Do(ctx); err == nil {
				visible = true
				return nil
			}
		}
		return nil
	}))
	return visible, err
}

func (h *chromeHandle) Click(ctx context.Context, sel Selector) error {
	return h.run(ctx, "click", chromedp.Click(sel.Expr, by(sel), chromedp.NodeVisible))
}

func (h *chromeHandle) ClearAndType(ctx context.Context, sel Selector, value string) error {
	return h.run(ctx, "type", chromedp.Tasks{
		chromedp.WaitVisible(sel.Expr, by(sel)),
		chromedp.Focus(sel.Expr, by(sel)),
		chromedp.Clear(sel.Expr, by(sel)),
		chromedp.SendKeys(sel.Expr, value, by(sel)),
	})
}

func (h *chromeHandle) Location(ctx context.Context) (string, error) {
	var location string
	err := h.run(ctx, "location", chromedp.Location(&location))
	return location, err
}

func (h *chromeHandle) Close() error {
	h.closeOnce.Do(func() {
		h.cancel()
		h.allocCancel()
		if h.release != nil {
			h.closeErr = h.release()
		}
	})
	return h.closeErr
}

// run executes actions against the tab, bounded by the caller's context.
func (h *chromeHandle) run(ctx context.Context, name string, action chromedp.Action) error {
	if err := h.ctx.Err(); err != nil {
		return fmt.Errorf("browser: %s: session closed: %w", name, err)
	}

	runCtx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := chromedp.Run(runCtx, action); err != nil {
		// Surface the caller's deadline so callers can tell a timeout from a
		// dead session.
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		} else if errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w (%v)", context.DeadlineExceeded, err)
		}
		h.logger.Debug("browser action failed", "action", name, "error", err)
		return fmt.Errorf("browser: %s: %w", name, err)
	}
	return nil
}

func by(sel Selector) chromedp.QueryOption {
	if sel.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
