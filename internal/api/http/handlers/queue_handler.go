package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/release-queue/internal/api/dto"
	"github.com/spec-kit/release-queue/internal/service"
	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

// QueueHandler serves the queue directory and entry/exit endpoints.
type QueueHandler struct {
	queues *service.QueueService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queueService *service.QueueService) *QueueHandler {
	return &QueueHandler{queues: queueService}
}

// QueueNames GET /getQueueNames.
func (h *QueueHandler) QueueNames(c *fiber.Ctx) error {
	names, err := h.queues.ListQueueNames(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(names)
}

// CheckQueue GET /checkQueue.
func (h *QueueHandler) CheckQueue(c *fiber.Ctx) error {
	var req dto.CheckQueueRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	entries, err := h.queues.ListQueue(c.UserContext(), req.Component)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		name := strings.ToLower(strings.TrimSpace(req.Component))
		return c.JSON(dto.MessageResponse{Message: name + " is empty"})
	}
	return c.JSON(dto.QueueView(entries, boolValue(req.Simple)))
}

// EnterQueue POST /enterQueue.
func (h *QueueHandler) EnterQueue(c *fiber.Ctx) error {
	var req dto.EnterQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	position, err := h.queues.EnterQueue(c.UserContext(), service.EnterQueueInput{
		Queue:       req.Component,
		Ticket:      req.Ticket,
		Description: req.Description,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.EnterQueueResponse{
		Message:  fmt.Sprintf("Successfully in queue. your position is %d", position),
		Position: position,
	})
}

// ExitQueue DELETE /exitQueue.
func (h *QueueHandler) ExitQueue(c *fiber.Ctx) error {
	var req dto.ExitQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	err := h.queues.ExitQueue(c.UserContext(), service.ExitQueueInput{
		Queue:    req.Component,
		Ticket:   req.Ticket,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Queue exited"})
}
