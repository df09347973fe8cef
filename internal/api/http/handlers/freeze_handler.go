package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/release-queue/internal/api/dto"
	"github.com/spec-kit/release-queue/internal/service"
	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

// FreezeHandler serves code freeze endpoints and the freeze light.
type FreezeHandler struct {
	freezes *service.FreezeService
}

// NewFreezeHandler constructs handler.
func NewFreezeHandler(freezeService *service.FreezeService) *FreezeHandler {
	return &FreezeHandler{freezes: freezeService}
}

// Status GET /.
func (h *FreezeHandler) Status(c *fiber.Ctx) error {
	active, err := h.freezes.IsFreezeActive(c.UserContext())
	if err != nil {
		return err
	}
	light := "GREEN LIGHT"
	if active {
		light = "RED LIGHT"
	}
	return c.JSON(dto.FreezeStatusResponse{FreezeActive: active, Light: light})
}

// StartCodeFreeze POST /startCodeFreeze.
func (h *FreezeHandler) StartCodeFreeze(c *fiber.Ctx) error {
	var req dto.StartFreezeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StartIn == nil || req.Duration == nil {
		return apperrors.NewValidationError("startIn and duration required", nil)
	}
	freeze, err := h.freezes.StartFreeze(c.UserContext(), service.StartFreezeInput{
		StartInDays:  *req.StartIn,
		DurationDays: *req.Duration,
		Email:        req.Email,
		Password:     req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewFreezeResponse(*freeze))
}

// EndActiveCodeFreeze DELETE /endActiveCodeFreeze.
func (h *FreezeHandler) EndActiveCodeFreeze(c *fiber.Ctx) error {
	var req dto.Credentials
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	count, err := h.freezes.EndAllActiveFreezes(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.EndFreezesResponse{Message: "Done", Ended: count})
}

// CheckFreezes GET /checkFreezes.
func (h *FreezeHandler) CheckFreezes(c *fiber.Ctx) error {
	freezes, err := h.freezes.ListFreezes(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.FreezeList(freezes))
}

// EndCodeFreeze DELETE /endCodeFreeze.
func (h *FreezeHandler) EndCodeFreeze(c *fiber.Ctx) error {
	var req dto.EndFreezeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.freezes.EndFreezeByID(c.UserContext(), req.FreezeID, req.Email, req.Password); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Done"})
}
