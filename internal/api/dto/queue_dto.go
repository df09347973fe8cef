package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/release-queue/internal/service"
)

// Releasing replaces the numeric position of a queue's head.
const Releasing = "Releasing"

// CheckQueueRequest selects a queue and a view shape.
type CheckQueueRequest struct {
	Component string `json:"componant" query:"componant"`
	Simple    *bool  `json:"simple" query:"simple"`
}

// EnterQueueRequest payload.
type EnterQueueRequest struct {
	Credentials
	Component   string `json:"componant"`
	Ticket      string `json:"ticket"`
	Description string `json:"description"`
}

// ExitQueueRequest payload.
type ExitQueueRequest struct {
	Credentials
	Component string `json:"componant"`
	Ticket    string `json:"ticket"`
}

// EnterQueueResponse reports the assigned position.
type EnterQueueResponse struct {
	Message  string `json:"message"`
	Position int    `json:"position"`
}

// Position renders as "Releasing" for the head of a queue and as a number
// otherwise.
type Position struct {
	Value     int
	Releasing bool
}

func (p Position) MarshalJSON() ([]byte, error) {
	if p.Releasing {
		return json.Marshal(Releasing)
	}
	return json.Marshal(p.Value)
}

// QueueEntrySimple is the reduced queue view.
type QueueEntrySimple struct {
	Ticket   string   `json:"ticket"`
	Email    string   `json:"email"`
	Position Position `json:"position"`
}

// QueueEntryFull carries every stored column.
type QueueEntryFull struct {
	ID          string    `json:"UUID"`
	Ticket      string    `json:"ticket"`
	Description string    `json:"description"`
	Email       string    `json:"email"`
	Team        string    `json:"teamName"`
	Opened      time.Time `json:"opened"`
	Position    Position  `json:"position"`
}

// QueueView maps ranked entries to the requested shape.
func QueueView(entries []service.RankedEntry, simple bool) any {
	if simple {
		out := make([]QueueEntrySimple, 0, len(entries))
		for _, e := range entries {
			out = append(out, QueueEntrySimple{
				Ticket:   e.Ticket,
				Email:    e.Email,
				Position: Position{Value: e.Position, Releasing: e.Releasing},
			})
		}
		return out
	}
	out := make([]QueueEntryFull, 0, len(entries))
	for _, e := range entries {
		out = append(out, QueueEntryFull{
			ID:          e.ID,
			Ticket:      e.Ticket,
			Description: e.Description,
			Email:       e.Email,
			Team:        e.Team,
			Opened:      e.OpenedAt,
			Position:    Position{Value: e.Position, Releasing: e.Releasing},
		})
	}
	return out
}
