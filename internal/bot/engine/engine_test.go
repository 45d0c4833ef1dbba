package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccheshirecat/rollerbot/internal/bot/browser"
	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/events"
)

func newTestEngine(t *testing.T, prov Provisioner, auto Automator, bus *recordingBus) *Engine {
	t.Helper()
	params := Params{
		State:       NewState(),
		Provisioner: prov,
		Automator:   auto,
		Credentials: func() config.Credentials { return config.Credentials{Email: "a@b.c", Password: "pw"} },
		Logger:      discardLogger(),
	}
	if bus != nil {
		params.Bus = bus
	}
	e, err := New(params)
	require.NoError(t, err)
	return e
}

func eventTypes(bus *recordingBus) []string {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	var out []string
	for _, evt := range bus.events {
		if e, ok := evt.(events.BotEvent); ok && e.Type != events.TypeAction {
			out = append(out, e.Type)
		}
	}
	return out
}

func TestRunCycleSuccess(t *testing.T) {
	h := newFakeHandle()
	auto := &fakeAutomator{loginOK: true, actOK: true}
	bus := &recordingBus{}
	e := newTestEngine(t, &fakeProvisioner{handle: h}, auto, bus)

	start := time.Now()
	e.RunCycle(context.Background())

	snap := e.State().Snapshot()
	assert.EqualValues(t, 1, snap.TotalRuns)
	assert.EqualValues(t, 0, snap.Errors)
	assert.Equal(t, ActionCompleted, snap.CurrentAction)
	last, ok := e.State().LastRun()
	require.True(t, ok)
	assert.False(t, last.Before(start))
	require.NotNil(t, snap.LastRun)
	assert.Equal(t, last.Format(LastRunLayout), *snap.LastRun)

	assert.EqualValues(t, 1, h.closed.Load(), "handle must be closed exactly once")
	assert.Equal(t, "a@b.c", auto.creds.Email)
	assert.Equal(t, []string{events.TypeCycleStarted, events.TypeCycleCompleted}, eventTypes(bus))
}

func TestRunCycleEventsShareCycleID(t *testing.T) {
	bus := &recordingBus{}
	e := newTestEngine(t, &fakeProvisioner{handle: newFakeHandle()}, &fakeAutomator{loginOK: true, actOK: true}, bus)
	e.RunCycle(context.Background())

	require.NotEmpty(t, bus.events)
	first := bus.events[0].(events.BotEvent)
	require.NotEmpty(t, first.CycleID)
	var sawAction bool
	for _, raw := range bus.events {
		evt := raw.(events.BotEvent)
		assert.Equal(t, first.CycleID, evt.CycleID)
		if evt.Type == events.TypeAction && evt.Action == "Locating browser binary" {
			sawAction = true
		}
	}
	assert.True(t, sawAction)
}

func TestRunCycleNotRunningIsNoop(t *testing.T) {
	prov := &fakeProvisioner{handle: newFakeHandle()}
	e := newTestEngine(t, prov, &fakeAutomator{loginOK: true}, nil)
	e.State().SetRunning(false)

	e.RunCycle(context.Background())
	assert.EqualValues(t, 0, prov.calls.Load())
	assert.EqualValues(t, 0, e.State().TotalRuns())
	assert.EqualValues(t, 0, e.State().ErrorCount())
}

func TestRunCycleProvisioningFailure(t *testing.T) {
	prov := &fakeProvisioner{err: &browser.Failure{Reason: browser.ReasonBinaryNotFound, Err: browser.ErrBinaryNotFound}}
	auto := &fakeAutomator{loginOK: true}
	bus := &recordingBus{}
	e := newTestEngine(t, prov, auto, bus)

	e.RunCycle(context.Background())

	snap := e.State().Snapshot()
	assert.EqualValues(t, 1, snap.Errors)
	assert.EqualValues(t, 0, snap.TotalRuns)
	assert.Nil(t, snap.LastRun)
	assert.True(t, strings.HasPrefix(snap.CurrentAction, "Error: "), snap.CurrentAction)
	assert.Contains(t, snap.CurrentAction, "BinaryNotFound")
	assert.EqualValues(t, 0, auto.actCalls.Load())
	assert.Equal(t, []string{events.TypeCycleStarted, events.TypeCycleFailed}, eventTypes(bus))
}

func TestRunCycleLoginRejected(t *testing.T) {
	h := newFakeHandle()
	auto := &fakeAutomator{loginOK: false}
	e := newTestEngine(t, &fakeProvisioner{handle: h}, auto, nil)

	e.RunCycle(context.Background())

	assert.EqualValues(t, 1, e.State().ErrorCount())
	assert.EqualValues(t, 0, e.State().TotalRuns())
	assert.Equal(t, "Error: Login failed", e.State().CurrentAction())
	assert.EqualValues(t, 1, h.closed.Load())
	assert.EqualValues(t, 0, auto.actCalls.Load())
}

func TestRunCycleLoginError(t *testing.T) {
	h := newFakeHandle()
	e := newTestEngine(t, &fakeProvisioner{handle: h}, &fakeAutomator{loginErr: errors.New("required element missing: email field")}, nil)

	e.RunCycle(context.Background())
	assert.EqualValues(t, 1, e.State().ErrorCount())
	assert.Contains(t, e.State().CurrentAction(), "email field")
	assert.EqualValues(t, 1, h.closed.Load())
}

func TestRunCycleActivitiesFailureStillCounts(t *testing.T) {
	for name, auto := range map[string]*fakeAutomator{
		"false": {loginOK: true, actOK: false},
		"error": {loginOK: true, actErr: errors.New("click intercepted")},
	} {
		t.Run(name, func(t *testing.T) {
			h := newFakeHandle()
			e := newTestEngine(t, &fakeProvisioner{handle: h}, auto, nil)
			e.RunCycle(context.Background())
			assert.EqualValues(t, 1, e.State().TotalRuns())
			assert.EqualValues(t, 0, e.State().ErrorCount())
			assert.EqualValues(t, 1, h.closed.Load())
		})
	}
}

func TestRunCycleRecoversStepPanic(t *testing.T) {
	h := newFakeHandle()
	e := newTestEngine(t, &fakeProvisioner{handle: h}, &fakeAutomator{loginPanic: "nil map"}, nil)

	require.NotPanics(t, func() { e.RunCycle(context.Background()) })
	assert.EqualValues(t, 1, e.State().ErrorCount())
	assert.Contains(t, e.State().CurrentAction(), "login panicked")
	assert.EqualValues(t, 1, h.closed.Load())
}

func TestRunCycleCleanupErrorIsSwallowed(t *testing.T) {
	h := newFakeHandle()
	h.closeErr = fmt.Errorf("kill: no such process")
	e := newTestEngine(t, &fakeProvisioner{handle: h}, &fakeAutomator{loginOK: true, actOK: true}, nil)

	e.RunCycle(context.Background())
	assert.EqualValues(t, 1, e.State().TotalRuns())
	assert.EqualValues(t, 0, e.State().ErrorCount())
}

func TestForceCleanupClosesInflightHandle(t *testing.T) {
	h := newFakeHandle()
	auto := &fakeAutomator{blockLogin: true}
	e := newTestEngine(t, &fakeProvisioner{handle: h}, auto, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.RunCycle(context.Background())
	}()

	require.Eventually(t, func() bool {
		return e.State().CurrentAction() == "Navigating to login page"
	}, time.Second, time.Millisecond)

	e.State().SetRunning(false)
	e.ForceCleanup()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cycle did not finish after force cleanup")
	}
	assert.GreaterOrEqual(t, h.closed.Load(), int32(1))
	assert.EqualValues(t, 1, e.State().ErrorCount())
	assert.EqualValues(t, 0, e.State().TotalRuns())
}

func TestHandleAcquiredAfterStopIsClosed(t *testing.T) {
	h := newFakeHandle()
	var e *Engine
	prov := &fakeProvisioner{handle: h}
	prov.before = func() {
		e.State().SetRunning(false)
		e.ForceCleanup()
	}
	auto := &fakeAutomator{loginOK: true, actOK: true}
	e = newTestEngine(t, prov, auto, nil)

	e.RunCycle(context.Background())

	assert.EqualValues(t, 1, h.closed.Load())
	assert.Equal(t, "Error: Bot stopped", e.State().CurrentAction())
	assert.Zero(t, auto.creds.Email, "login must not run on a stopped bot")
}

func TestIdleSnapshot(t *testing.T) {
	snap := IdleSnapshot()
	assert.False(t, snap.Running)
	assert.Nil(t, snap.LastRun)
	assert.Zero(t, snap.TotalRuns)
	assert.Zero(t, snap.Errors)
	assert.Equal(t, "Idle", snap.CurrentAction)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Params{})
	require.Error(t, err)
	_, err = New(Params{State: NewState(), Provisioner: &fakeProvisioner{}, Automator: &fakeAutomator{}})
	require.Error(t, err)
}

func TestFailureAction(t *testing.T) {
	assert.Equal(t, "Error: Login failed", failureAction(errLoginRefused.Error()))
	assert.Equal(t, "Error: Failed to setup browser: x", failureAction("failed to setup browser: x"))
	assert.Equal(t, "Error", failureAction(""))
	assert.Equal(t, "login failed", errLoginRefused.Error())
}
