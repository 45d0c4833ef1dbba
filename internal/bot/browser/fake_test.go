package browser

import (
	"context"
	"errors"
	"sync"
)

type fakeHandle struct {
	mu          sync.Mutex
	navigateErr error
	navigated   []string
	closed      int
}

func (h *fakeHandle) Navigate(_ context.Context, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navigated = append(h.navigated, url)
	return h.navigateErr
}

func (h *fakeHandle) WaitReady(context.Context, Selector) error { return nil }
func (h *fakeHandle) WaitVisible(context.Context, Selector) error { return nil }
func (h *fakeHandle) Visible(context.Context, Selector) (bool, error) { return false, nil }
func (h *fakeHandle) Click(context.Context, Selector) error { return nil }
func (h *fakeHandle) ClearAndType(context.Context, Selector, string) error { return nil }
func (h *fakeHandle) Location(context.Context) (string, error) { return "about:blank", nil }

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	return nil
}

type fakeStrategy struct {
	name     string
	handle   *fakeHandle
	err      error
	panicVal any
	calls    int
	binaries []string
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Attempt(_ context.Context, binary string) (Handle, error) {
	s.calls++
	s.binaries = append(s.binaries, binary)
	if s.panicVal != nil {
		panic(s.panicVal)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.handle, nil
}

var errLaunch = errors.New("launch refused")
