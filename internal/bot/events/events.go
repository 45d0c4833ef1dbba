package events

import "time"

// Status is the bot condition carried by an event.
type Status string

const (
	StatusRunning Status = "running"
	StatusIdle    Status = "idle"
	StatusFailed  Status = "failed"
	StatusStopped Status = "stopped"
)

// BotEvent describes one bot state transition.
type BotEvent struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycle_id,omitempty"`
	Type      string    `json:"type"`
	Action    string    `json:"action,omitempty"`
	Message   string    `json:"message,omitempty"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	TypeCycleStarted   = "CYCLE_STARTED"
	TypeAction         = "ACTION"
	TypeCycleCompleted = "CYCLE_COMPLETED"
	TypeCycleFailed    = "CYCLE_FAILED"
	TypeBotStarted     = "BOT_STARTED"
	TypeBotStopped     = "BOT_STOPPED"
)

// TopicBotEvents is the event bus topic for bot lifecycle events.
const TopicBotEvents = "bot.events"
