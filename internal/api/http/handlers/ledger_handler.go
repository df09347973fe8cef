package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/release-queue/internal/api/dto"
	"github.com/spec-kit/release-queue/internal/service"
)

// LedgerHandler serves the master queue.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler constructs handler.
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledgerService}
}

// CheckMasterQueue GET /checkMasterQueue.
func (h *LedgerHandler) CheckMasterQueue(c *fiber.Ctx) error {
	var req dto.CheckMasterQueueRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	entries, err := h.ledger.ListLedger(c.UserContext(), service.LedgerQuery{
		ByComponent: boolValue(req.ByComponent),
		DaysBack:    req.DaysBack,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return c.JSON(dto.MessageResponse{Message: "Master queue is empty"})
	}
	return c.JSON(dto.LedgerView(entries, boolValue(req.Simple)))
}
