package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeHandle struct {
	closed   atomic.Int32
	closedCh chan struct{}
	once     sync.Once
	closeErr error
}

func newFakeHandle() *fakeHandle { return &fakeHandle{closedCh: make(chan struct{})} }

func (h *fakeHandle) Navigate(context.Context, string) error { return nil }
func (h *fakeHandle) WaitReady(context.Context, browser.Selector) error { return nil }
func (h *fakeHandle) WaitVisible(context.Context, browser.Selector) error { return nil }
func (h *fakeHandle) Visible(context.Context, browser.Selector) (bool, error) { return false, nil }
func (h *fakeHandle) Click(context.Context, browser.Selector) error { return nil }
func (h *fakeHandle) ClearAndType(context.Context, browser.Selector, string) error { return nil }
func (h *fakeHandle) Location(context.Context) (string, error) { return "", nil }

func (h *fakeHandle) Close() error {
	h.closed.Add(1)
	h.once.Do(func() { close(h.closedCh) })
	return h.closeErr
}

type fakeProvisioner struct {
	handle *fakeHandle
	err    error
	calls  atomic.Int32
	before func()
}

func (p *fakeProvisioner) Acquire(_ context.Context, report browser.Reporter) (browser.Handle, error) {
	p.calls.Add(1)
	report.Report("Locating browser binary")
	if p.before != nil {
		p.before()
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.handle, nil
}

type fakeAutomator struct {
	loginOK    bool
	loginErr   error
	loginPanic any
	// blockLogin makes Login wait until the handle is closed.
	blockLogin bool
	actOK      bool
	actErr     error
	creds      config.Credentials
	actCalls   atomic.Int32
}

func (a *fakeAutomator) Login(ctx context.Context, h browser.Handle, creds config.Credentials, report browser.Reporter) (bool, error) {
	a.creds = creds
	report.Report("Navigating to login page")
	if a.loginPanic != nil {
		panic(a.loginPanic)
	}
	if a.blockLogin {
		select {
		case <-h.(*fakeHandle).closedCh:
			return false, errors.New("browser: navigate: session closed")
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return a.loginOK, a.loginErr
}

func (a *fakeAutomator) PerformActivities(_ context.Context, _ browser.Handle, _ browser.Reporter) (bool, error) {
	a.actCalls.Add(1)
	return a.actOK, a.actErr
}

type recordingBus struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingBus) Publish(_ context.Context, _ string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, payload)
	return nil
}

func (b *recordingBus) Subscribe(string, chan<- any) (func(), error) { return func() {}, nil }
