package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/release-queue/internal/domain"
	"github.com/spec-kit/release-queue/internal/service"
)

func TestQueueView_HeadIsReleasing(t *testing.T) {
	entries := []service.RankedEntry{
		{QueueEntry: domain.QueueEntry{Ticket: "ABC123", Email: "alice@company-domain", Position: 1}, Releasing: true},
		{QueueEntry: domain.QueueEntry{Ticket: "XYZ999", Email: "bob@company-domain", Position: 2}},
	}

	raw, err := json.Marshal(QueueView(entries, true))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"ticket":"ABC123","email":"alice@company-domain","position":"Releasing"},
		{"ticket":"XYZ999","email":"bob@company-domain","position":2}
	]`, string(raw))
}

func TestLedgerView_SimpleOmitsClosedWhileActive(t *testing.T) {
	opened := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	closed := opened.Add(time.Hour)
	rows := []domain.LedgerEntry{
		{ID: "a", Ticket: "ABC123", Component: "billing", Email: "alice@company-domain", Active: false, OpenedAt: opened, ClosedAt: &closed},
		{ID: "b", Ticket: "XYZ999", Component: "billing", Email: "bob@company-domain", Active: true, OpenedAt: opened},
	}

	raw, err := json.Marshal(LedgerView(rows, true))
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded[0], "closed")
	assert.NotContains(t, decoded[1], "closed")
	assert.NotContains(t, decoded[1], "UUID")

	raw, err = json.Marshal(LedgerView(rows, false))
	require.NoError(t, err)
	decoded = nil
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded[1]["closed"])
	assert.Equal(t, "b", decoded[1]["UUID"])
}

func TestNewFreezeResponse_FormatsDates(t *testing.T) {
	begins := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)
	resp := NewFreezeResponse(domain.CodeFreeze{ID: "f1", Begins: begins, DurationDays: 3, Ends: begins.AddDate(0, 0, 3)})

	assert.Equal(t, "2026-10-21", resp.Begins)
	assert.Equal(t, "2026-10-24", resp.Ends)
	assert.False(t, resp.InEffect)
}
