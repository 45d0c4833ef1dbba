package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCycler struct {
	state  *State
	calls  atomic.Int32
	panics int32
	stopAt int32
}

func (c *countingCycler) RunCycle(context.Context) {
	n := c.calls.Add(1)
	if n == c.stopAt {
		c.state.SetRunning(false)
	}
	if n <= c.panics {
		panic("cycle blew up")
	}
}

func newTestSupervisor(t *testing.T, state *State, cycler Cycler, interval func() time.Duration, backoff time.Duration) *Supervisor {
	t.Helper()
	s, err := NewSupervisor(SupervisorParams{
		State:    state,
		Cycler:   cycler,
		Interval: interval,
		Backoff:  backoff,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	return s
}

func TestSupervisorRunsUntilStopped(t *testing.T) {
	state := NewState()
	cycler := &countingCycler{state: state, stopAt: 3}
	var intervalReads atomic.Int32
	s := newTestSupervisor(t, state, cycler, func() time.Duration {
		intervalReads.Add(1)
		return time.Millisecond
	}, time.Hour)

	s.Run(context.Background())

	assert.EqualValues(t, 3, cycler.calls.Load())
	assert.EqualValues(t, 3, intervalReads.Load(), "interval is re-read every iteration")
}

func TestSupervisorBacksOffAfterPanic(t *testing.T) {
	state := NewState()
	cycler := &countingCycler{state: state, panics: 1, stopAt: 2}
	s := newTestSupervisor(t, state, cycler, func() time.Duration { return time.Hour }, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not resume after backoff")
	}
	assert.EqualValues(t, 2, cycler.calls.Load())
	assert.EqualValues(t, 1, state.ErrorCount())
}

func TestSupervisorWakeInterruptsSleep(t *testing.T) {
	state := NewState()
	cycler := &countingCycler{state: state}
	s := newTestSupervisor(t, state, cycler, func() time.Duration { return time.Hour }, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return cycler.calls.Load() == 1 }, time.Second, time.Millisecond)
	state.SetRunning(false)
	s.Wake()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor kept sleeping after wake")
	}
	assert.EqualValues(t, 1, cycler.calls.Load())
}

func TestSupervisorStopsOnContextCancel(t *testing.T) {
	state := NewState()
	cycler := &countingCycler{state: state}
	s := newTestSupervisor(t, state, cycler, func() time.Duration { return time.Hour }, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	require.Eventually(t, func() bool { return cycler.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor ignored context cancellation")
	}
	assert.True(t, state.Running(), "cancellation does not clear the running flag")
}

func TestBotStopIsIdempotent(t *testing.T) {
	bot, err := NewBot(BotParams{
		Provisioner: &fakeProvisioner{handle: newFakeHandle()},
		Automator:   &fakeAutomator{loginOK: true, actOK: true},
		Interval:    func() time.Duration { return time.Hour },
		Logger:      discardLogger(),
	})
	require.NoError(t, err)
	assert.True(t, bot.Running())
	assert.Equal(t, ActionInitializing, bot.Snapshot().CurrentAction)

	assert.True(t, bot.Stop())
	assert.False(t, bot.Stop())
	assert.False(t, bot.Running())
}
