package handler

import (
	"fmt"
	"strings"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/service"
	"github.com/gofiber/fiber/v2"
)

type EventHandler struct {
	events *service.EventService
}

func NewEventHandler(events *service.EventService) (*EventHandler, error) {
	if events == nil {
		return nil, fmt.Errorf("event service is required")
	}
	return &EventHandler{events: events}, nil
}

func RegisterEventRoutes(router fiber.Router, events *service.EventService) error {
	h, err := NewEventHandler(events)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/events/notify", h.NotifyEvent)

	return nil
}

type notifyEventRequest struct {
	Event  string         `json:"event"`
	Mobile string         `json:"mobile"`
	Record map[string]any `json:"record"`
}

// recordFields adapts the request's free-form record to the template
// renderer.
type recordFields map[string]any

func (r recordFields) Fields() map[string]any { return r }

func (h *EventHandler) NotifyEvent(c *fiber.Ctx) error {
	var req notifyEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	event, err := domain.ParseEventFromString(req.Event)
	if err != nil {
		return toHTTPError(err)
	}

	entry, err := h.events.NotifyEvent(c.Context(), requestPrincipal(c), event, strings.TrimSpace(req.Mobile), recordFields(req.Record))
	if err != nil {
		return toHTTPError(err)
	}
	if entry == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"event":  event.String(),
			"status": "skipped",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"event":     event.String(),
		"status":    "sent",
		"historyId": entry.ID,
	})
}
