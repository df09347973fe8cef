package dto

import (
	"github.com/spec-kit/release-queue/internal/domain"
)

const dateLayout = "2006-01-02"

// StartFreezeRequest payload. Both counts are in days.
type StartFreezeRequest struct {
	Credentials
	StartIn  *int `json:"startIn"`
	Duration *int `json:"duration"`
}

// EndFreezeRequest payload.
type EndFreezeRequest struct {
	Credentials
	FreezeID string `json:"codeFreezeUUID"`
}

// FreezeStatusResponse is served at the root path.
type FreezeStatusResponse struct {
	FreezeActive bool   `json:"freezeActive"`
	Light        string `json:"light"`
}

// EndFreezesResponse reports how many freezes were switched off.
type EndFreezesResponse struct {
	Message string `json:"message"`
	Ended   int64  `json:"ended"`
}

// FreezeResponse is the full freeze shape. Dates are calendar days.
type FreezeResponse struct {
	ID       string `json:"UUID"`
	Begins   string `json:"begins"`
	Duration int    `json:"duration"`
	Ends     string `json:"ends"`
	InEffect bool   `json:"inEffect"`
}

// NewFreezeResponse maps a freeze.
func NewFreezeResponse(f domain.CodeFreeze) FreezeResponse {
	return FreezeResponse{
		ID:       f.ID,
		Begins:   f.Begins.Format(dateLayout),
		Duration: f.DurationDays,
		Ends:     f.Ends.Format(dateLayout),
		InEffect: f.InEffect,
	}
}

// FreezeList maps freezes in stored order.
func FreezeList(freezes []domain.CodeFreeze) []FreezeResponse {
	out := make([]FreezeResponse, 0, len(freezes))
	for _, f := range freezes {
		out = append(out, NewFreezeResponse(f))
	}
	return out
}
