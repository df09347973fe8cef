package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventQueueEntered  EventType = "queue_entered"
	EventQueueExited   EventType = "queue_exited"
	EventFreezeStarted EventType = "freeze_started"
	EventFreezesEnded  EventType = "freezes_ended"
	EventFreezeDeleted EventType = "freeze_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// QueueEnteredPayload payload.
type QueueEnteredPayload struct {
	Queue    string `json:"queue"`
	Ticket   string `json:"ticket"`
	Team     string `json:"team"`
	Position int    `json:"position"`
}

// QueueExitedPayload payload.
type QueueExitedPayload struct {
	Queue          string `json:"queue"`
	Ticket         string `json:"ticket"`
	LedgerClosed   int64  `json:"ledger_closed"`
	EntriesRemoved int64  `json:"entries_removed"`
}

// FreezeStartedPayload payload.
type FreezeStartedPayload struct {
	FreezeID     string    `json:"freeze_id"`
	Begins       time.Time `json:"begins"`
	Ends         time.Time `json:"ends"`
	DurationDays int       `json:"duration_days"`
	InEffect     bool      `json:"in_effect"`
}

// FreezesEndedPayload payload.
type FreezesEndedPayload struct {
	Count int64 `json:"count"`
}

// FreezeDeletedPayload payload.
type FreezeDeletedPayload struct {
	FreezeID string `json:"freeze_id"`
}
