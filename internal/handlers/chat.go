package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopassist/internal/container"
	"shopassist/internal/models"
)

// ChatHandler serves the widget's HTTP fallback transport. Behavior matches
// the WebSocket path; both delegate to ChatProcessor.
type ChatHandler struct {
	container *container.Container
	processor *ChatProcessor
}

func NewChatHandler(c *container.Container) *ChatHandler {
	return &ChatHandler{
		container: c,
		processor: NewChatProcessor(c),
	}
}

// HandleChat processes one message and returns the bot reply.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "invalid_body",
			Message: "Request body must be valid JSON",
		})
	}

	resp, procErr := h.processor.ProcessChat(c.UserContext(), &req)
	if procErr != nil {
		status := fiber.StatusInternalServerError
		if procErr.Code == "validation_error" {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(models.ErrorResponse{
			Error:   procErr.Code,
			Message: procErr.Message,
		})
	}
	return c.JSON(resp)
}

// ListSessions returns the device's session summaries.
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "validation_error",
			Message: "device_id is required",
		})
	}
	summaries, err := h.container.Sessions.ListSessions(c.UserContext(), deviceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   "session_error",
			Message: "Could not list sessions",
		})
	}
	return c.JSON(fiber.Map{"sessions": summaries})
}
