package control

import (
	"context"
	"sync"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
)

type stubHandle struct{}

func (stubHandle) Navigate(context.Context, string) error { return nil }
func (stubHandle) WaitReady(context.Context, browser.Selector) error { return nil }
func (stubHandle) WaitVisible(context.Context, browser.Selector) error { return nil }
func (stubHandle) Visible(context.Context, browser.Selector) (bool, error) { return false, nil }
func (stubHandle) Click(context.Context, browser.Selector) error { return nil }
func (stubHandle) ClearAndType(context.Context, browser.Selector, string) error { return nil }
func (stubHandle) Location(context.Context) (string, error) { return "https://example.test/game", nil }
func (stubHandle) Close() error { return nil }

type stubProvisioner struct{}

func (stubProvisioner) Acquire(context.Context, browser.Reporter) (browser.Handle, error) {
	return stubHandle{}, nil
}

type stubAutomator struct{}

func (stubAutomator) Login(context.Context, browser.Handle, config.Credentials, browser.Reporter) (bool, error) {
	return true, nil
}

func (stubAutomator) PerformActivities(context.Context, browser.Handle, browser.Reporter) (bool, error) {
	return true, nil
}

// slowHandle takes closeDelay to close and signals closing when the first
// close begins.
type slowHandle struct {
	stubHandle
	closeDelay time.Duration
	closing    chan struct{}
	once       sync.Once
}

func (h *slowHandle) Close() error {
	h.once.Do(func() { close(h.closing) })
	time.Sleep(h.closeDelay)
	return nil
}

type slowProvisioner struct{ handle *slowHandle }

func (p slowProvisioner) Acquire(context.Context, browser.Reporter) (browser.Handle, error) {
	return p.handle, nil
}

// blockingAutomator holds Login until its context ends.
type blockingAutomator struct{ entered chan struct{} }

func (a blockingAutomator) Login(ctx context.Context, _ browser.Handle, _ config.Credentials, _ browser.Reporter) (bool, error) {
	close(a.entered)
	<-ctx.Done()
	return false, ctx.Err()
}

func (blockingAutomator) PerformActivities(context.Context, browser.Handle, browser.Reporter) (bool, error) {
	return true, nil
}
