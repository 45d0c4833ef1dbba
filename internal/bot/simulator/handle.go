package simulator

import (
	"context"
	"errors"
	"sync"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
)

var errHandleClosed = errors.New("simulator: handle closed")

// Handle is an in-memory browser session that only tracks its location.
type Handle struct {
	mu       sync.Mutex
	location string
	isClosed bool
}

var _ browser.Handle = (*Handle)(nil)

func (h *Handle) Navigate(_ context.Context, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isClosed {
		return errHandleClosed
	}
	h.location = url
	return nil
}

func (h *Handle) WaitReady(context.Context, browser.Selector) error { return h.check() }
func (h *Handle) WaitVisible(context.Context, browser.Selector) error { return h.check() }
func (h *Handle) Click(context.Context, browser.Selector) error { return h.check() }

func (h *Handle) Visible(context.Context, browser.Selector) (bool, error) {
	return true, h.check()
}

func (h *Handle) ClearAndType(context.Context, browser.Selector, string) error { return h.check() }

func (h *Handle) Location(context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.isClosed {
		return "", errHandleClosed
	}
	return h.location, nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isClosed = true
	return nil
}

func (h *Handle) closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isClosed
}

func (h *Handle) check() error {
	if h.closed() {
		return errHandleClosed
	}
	return nil
}
