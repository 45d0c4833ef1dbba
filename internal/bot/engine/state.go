package engine

import (
	"sync/atomic"
	"time"
)

// LastRunLayout formats last_run in status payloads.
const LastRunLayout = "2006-01-02 15:04:05"

const (
	ActionInitializing = "Initializing"
	ActionIdle         = "Idle"
)

// State holds the counters of one bot. Each field is independently atomic;
// a Snapshot may mix values from before and after a concurrent update.
type State struct {
	running       atomic.Bool
	currentAction atomic.Pointer[string]
	lastRun       atomic.Pointer[time.Time]
	totalRuns     atomic.Int64
	errorCount    atomic.Int64
}

// NewState returns a running state whose current action is "Initializing".
func NewState() *State {
	s := &State{}
	s.running.Store(true)
	s.SetAction(ActionInitializing)
	return s
}

func (s *State) Running() bool { return s.running.Load() }
func (s *State) SetRunning(v bool) { s.running.Store(v) }
func (s *State) SetAction(a string) { s.currentAction.Store(&a) }
func (s *State) TotalRuns() int64 { return s.totalRuns.Load() }
func (s *State) ErrorCount() int64 { return s.errorCount.Load() }
func (s *State) recordError() int64 { return s.errorCount.Add(1) }

func (s *State) CurrentAction() string {
	if p := s.currentAction.Load(); p != nil {
		return *p
	}
	return ""
}

// LastRun returns the completion time of the latest successful cycle.
func (s *State) LastRun() (time.Time, bool) {
	if p := s.lastRun.Load(); p != nil {
		return *p, true
	}
	return time.Time{}, false
}

func (s *State) recordSuccess(at time.Time) int64 {
	s.lastRun.Store(&at)
	return s.totalRuns.Add(1)
}

// Snapshot is the read-only status view served to operators.
type Snapshot struct {
	Running       bool    `json:"running"`
	LastRun       *string `json:"last_run"`
	TotalRuns     int64   `json:"total_runs"`
	Errors        int64   `json:"errors"`
	CurrentAction string  `json:"current_action"`
}

// Snapshot reads the state without blocking the worker.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Running:       s.Running(),
		TotalRuns:     s.TotalRuns(),
		Errors:        s.ErrorCount(),
		CurrentAction: s.CurrentAction(),
	}
	if at, ok := s.LastRun(); ok {
		formatted := at.Format(LastRunLayout)
		snap.LastRun = &formatted
	}
	return snap
}

// IdleSnapshot is reported when no bot has been created yet.
func IdleSnapshot() Snapshot {
	return Snapshot{CurrentAction: ActionIdle}
}
