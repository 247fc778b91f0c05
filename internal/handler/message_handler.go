package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type Dispatcher interface {
	SendNow(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.HistoryEntry, error)
	Enqueue(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.QueueEntry, error)
}

type Drainer interface {
	Drain(ctx context.Context, batchSize int) error
}

type ReceiptPoller interface {
	Poll(ctx context.Context, batchSize int) error
}

type MessageHandler struct {
	dispatcher Dispatcher
	drainer    Drainer
	receipts   ReceiptPoller
	queue      repository.QueueRepository
	history    repository.HistoryRepository
}

func NewMessageHandler(
	dispatcher Dispatcher,
	drainer Drainer,
	receipts ReceiptPoller,
	queue repository.QueueRepository,
	history repository.HistoryRepository,
) (*MessageHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if queue == nil || history == nil {
		return nil, fmt.Errorf("queue and history repositories are required")
	}
	return &MessageHandler{
		dispatcher: dispatcher,
		drainer:    drainer,
		receipts:   receipts,
		queue:      queue,
		history:    history,
	}, nil
}

func RegisterMessageRoutes(
	router fiber.Router,
	dispatcher Dispatcher,
	drainer Drainer,
	receipts ReceiptPoller,
	queue repository.QueueRepository,
	history repository.HistoryRepository,
) error {
	h, err := NewMessageHandler(dispatcher, drainer, receipts, queue, history)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages", h.SendMessage)
	v1.Post("/messages/queue", h.QueueMessage)
	v1.Get("/queue", h.ListQueue)
	v1.Get("/history", h.ListHistory)
	v1.Post("/queue/drain", h.TriggerDrain)
	v1.Post("/receipts/poll", h.TriggerReceiptPoll)

	return nil
}

type sendMessageRequest struct {
	GatewayID       string  `json:"gatewayId"`
	Mobile          string  `json:"mobile"`
	Text            string  `json:"text"`
	ValidityMinutes *int    `json:"validityMinutes,omitempty"`
	Class           *string `json:"class,omitempty"`
	Coding          *string `json:"coding,omitempty"`
	NoStop          *bool   `json:"nostop,omitempty"`
}

type historyResponse struct {
	ID                  string    `json:"id"`
	GatewayID           string    `json:"gatewayId"`
	Name                string    `json:"name"`
	Mobile              string    `json:"mobile"`
	Text                string    `json:"text"`
	MessageID           string    `json:"messageId,omitempty"`
	StatusCode          string    `json:"statusCode,omitempty"`
	StatusText          string    `json:"statusText,omitempty"`
	StatusMobile        string    `json:"statusMobile,omitempty"`
	StatusMsg           string    `json:"statusMsg,omitempty"`
	Acknowledgement     string    `json:"acknowledgement,omitempty"`
	AcknowledgementDate string    `json:"acknowledgementDate,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

type queueEntryResponse struct {
	ID        string    `json:"id"`
	GatewayID string    `json:"gatewayId"`
	Mobile    string    `json:"mobile"`
	Text      string    `json:"text"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type listQueueResponse struct {
	Data []queueEntryResponse `json:"data"`
	Meta listMeta             `json:"meta"`
}

type listHistoryResponse struct {
	Data []historyResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	msg, err := requestToOutboundMessage(req)
	if err != nil {
		return toHTTPError(err)
	}

	entry, err := h.dispatcher.SendNow(c.Context(), requestPrincipal(c), msg)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toHistoryResponse(entry))
}

func (h *MessageHandler) QueueMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	msg, err := requestToOutboundMessage(req)
	if err != nil {
		return toHTTPError(err)
	}

	entry, err := h.dispatcher.Enqueue(c.Context(), requestPrincipal(c), msg)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toQueueEntryResponse(entry))
}

func (h *MessageHandler) ListQueue(c *fiber.Ctx) error {
	params := repository.QueueListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}
	if params.Page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}

	if rawState := strings.TrimSpace(c.Query("state")); rawState != "" {
		state, err := domain.ParseQueueStateFromString(rawState)
		if err != nil {
			return toHTTPError(err)
		}
		params.State = &state
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return toHTTPError(err)
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return toHTTPError(err)
	}
	params.From = from
	params.To = to

	entries, total, err := h.queue.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]queueEntryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, toQueueEntryResponse(&entries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listQueueResponse{
		Data: data,
		Meta: listMeta{Page: params.Page, PageSize: params.PageSize, Total: total},
	})
}

func (h *MessageHandler) ListHistory(c *fiber.Ctx) error {
	params := repository.HistoryListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}
	if params.Page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}

	if gatewayID := strings.TrimSpace(c.Query("gatewayId")); gatewayID != "" {
		params.GatewayID = &gatewayID
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return toHTTPError(err)
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return toHTTPError(err)
	}
	params.From = from
	params.To = to

	entries, total, err := h.history.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]historyResponse, 0, len(entries))
	for i := range entries {
		data = append(data, toHistoryResponse(&entries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listHistoryResponse{
		Data: data,
		Meta: listMeta{Page: params.Page, PageSize: params.PageSize, Total: total},
	})
}

func (h *MessageHandler) TriggerDrain(c *fiber.Ctx) error {
	if h.drainer == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "queue drain is not configured")
	}

	batchSize := c.QueryInt("batchSize", 0)
	if err := h.drainer.Drain(c.Context(), batchSize); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "drained"})
}

func (h *MessageHandler) TriggerReceiptPoll(c *fiber.Ctx) error {
	if h.receipts == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "receipt polling is not configured")
	}

	batchSize := c.QueryInt("batchSize", 0)
	if err := h.receipts.Poll(c.Context(), batchSize); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "polled"})
}

func requestToOutboundMessage(req sendMessageRequest) (*domain.OutboundMessage, error) {
	msg := &domain.OutboundMessage{
		GatewayID:       strings.TrimSpace(req.GatewayID),
		Mobile:          strings.TrimSpace(req.Mobile),
		Text:            req.Text,
		ValidityMinutes: req.ValidityMinutes,
		NoStop:          req.NoStop,
	}

	if req.Class != nil {
		class := domain.Class(strings.TrimSpace(*req.Class))
		if !class.IsValid() {
			return nil, fmt.Errorf("%w: invalid class %q", domain.ErrValidation, *req.Class)
		}
		msg.Class = &class
	}
	if req.Coding != nil {
		coding := domain.Coding(strings.TrimSpace(*req.Coding))
		if !coding.IsValid() {
			return nil, fmt.Errorf("%w: invalid coding %q", domain.ErrValidation, *req.Coding)
		}
		msg.Coding = &coding
	}

	return msg, nil
}

// requestPrincipal identifies the caller from request headers. An empty
// principal is still subject to the access check downstream.
func requestPrincipal(c *fiber.Ctx) service.Principal {
	return service.Principal{
		ID:   strings.TrimSpace(c.Get("X-User-Id")),
		Name: strings.TrimSpace(c.Get("X-User-Name")),
	}
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toHistoryResponse(entry *domain.HistoryEntry) historyResponse {
	if entry == nil {
		return historyResponse{}
	}

	return historyResponse{
		ID:                  entry.ID,
		GatewayID:           entry.GatewayID,
		Name:                entry.Name,
		Mobile:              entry.Mobile,
		Text:                entry.Text,
		MessageID:           entry.MessageID,
		StatusCode:          entry.StatusCode,
		StatusText:          domain.StatusCodeText(entry.StatusCode),
		StatusMobile:        entry.StatusMobile,
		StatusMsg:           entry.StatusMsg,
		Acknowledgement:     entry.Acknowledgement,
		AcknowledgementDate: entry.AcknowledgementDate,
		CreatedAt:           entry.CreatedAt,
	}
}

func toQueueEntryResponse(entry *domain.QueueEntry) queueEntryResponse {
	if entry == nil {
		return queueEntryResponse{}
	}

	return queueEntryResponse{
		ID:        entry.ID,
		GatewayID: entry.GatewayID,
		Mobile:    entry.Mobile,
		Text:      entry.Text,
		State:     entry.State.String(),
		Error:     entry.Error,
		CreatedAt: entry.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPermission):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConfiguration):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}
