package domain

import "time"

// Queue is a registered work queue, one per team or component.
type Queue struct {
	Name      string
	CreatedAt time.Time
}

// QueueEntry is a ticket waiting in a queue.
type QueueEntry struct {
	ID          string
	QueueName   string
	Ticket      string
	Description string
	Email       string
	Team        string
	OpenedAt    time.Time
	Position    int
}

// LedgerEntry is the master-queue record of a ticket. It shares its ID with the
// QueueEntry it was created alongside.
type LedgerEntry struct {
	ID          string
	Ticket      string
	Description string
	Component   string
	Email       string
	Team        string
	Active      bool
	OpenedAt    time.Time
	ClosedAt    *time.Time
}
