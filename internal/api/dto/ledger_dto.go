package dto

import (
	"time"

	"github.com/spec-kit/release-queue/internal/domain"
)

// CheckMasterQueueRequest selects the ledger view.
type CheckMasterQueueRequest struct {
	Simple      *bool `json:"simple" query:"simple"`
	DaysBack    *int  `json:"daysBack" query:"daysBack"`
	ByComponent *bool `json:"byComponant" query:"byComponant"`
}

// LedgerEntrySimple omits the description, team and identifier. Closed is
// present only once the entry is inactive.
type LedgerEntrySimple struct {
	Ticket    string     `json:"ticket"`
	Email     string     `json:"email"`
	Component string     `json:"componant"`
	Active    bool       `json:"active"`
	Opened    time.Time  `json:"opened"`
	Closed    *time.Time `json:"closed,omitempty"`
}

// LedgerEntryFull carries every stored column; closed is null while active.
type LedgerEntryFull struct {
	ID          string     `json:"UUID"`
	Ticket      string     `json:"ticket"`
	Description string     `json:"description"`
	Component   string     `json:"componant"`
	Email       string     `json:"email"`
	Team        string     `json:"teamName"`
	Active      bool       `json:"active"`
	Opened      time.Time  `json:"opened"`
	Closed      *time.Time `json:"closed"`
}

// LedgerView maps ledger rows to the requested shape.
func LedgerView(entries []domain.LedgerEntry, simple bool) any {
	if simple {
		out := make([]LedgerEntrySimple, 0, len(entries))
		for _, e := range entries {
			row := LedgerEntrySimple{
				Ticket:    e.Ticket,
				Email:     e.Email,
				Component: e.Component,
				Active:    e.Active,
				Opened:    e.OpenedAt,
			}
			if !e.Active {
				row.Closed = e.ClosedAt
			}
			out = append(out, row)
		}
		return out
	}
	out := make([]LedgerEntryFull, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryFull{
			ID:          e.ID,
			Ticket:      e.Ticket,
			Description: e.Description,
			Component:   e.Component,
			Email:       e.Email,
			Team:        e.Team,
			Active:      e.Active,
			Opened:      e.OpenedAt,
			Closed:      e.ClosedAt,
		})
	}
	return out
}
