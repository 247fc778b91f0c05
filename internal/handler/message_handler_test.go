package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/service"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/transport"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type stubDispatcher struct {
	sendFn    func(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.HistoryEntry, error)
	enqueueFn func(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.QueueEntry, error)
}

func (s *stubDispatcher) SendNow(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.HistoryEntry, error) {
	if s.sendFn == nil {
		return nil, errors.New("sendFn not set")
	}
	return s.sendFn(ctx, principal, msg)
}

func (s *stubDispatcher) Enqueue(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.QueueEntry, error) {
	if s.enqueueFn == nil {
		return nil, errors.New("enqueueFn not set")
	}
	return s.enqueueFn(ctx, principal, msg)
}

type stubDrainer struct {
	drainFn func(ctx context.Context, batchSize int) error
}

func (s *stubDrainer) Drain(ctx context.Context, batchSize int) error {
	if s.drainFn == nil {
		return nil
	}
	return s.drainFn(ctx, batchSize)
}

type stubQueueRepo struct {
	entries []domain.QueueEntry
}

func (s *stubQueueRepo) Enqueue(ctx context.Context, entry *domain.QueueEntry) error { return nil }
func (s *stubQueueRepo) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	return nil, domain.ErrNotFound
}
func (s *stubQueueRepo) List(ctx context.Context, params repository.QueueListParams) ([]domain.QueueEntry, int64, error) {
	return s.entries, int64(len(s.entries)), nil
}
func (s *stubQueueRepo) ClaimBatch(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	return nil, nil
}
func (s *stubQueueRepo) MarkSent(ctx context.Context, id string) error              { return nil }
func (s *stubQueueRepo) MarkError(ctx context.Context, id string, msg string) error { return nil }

type stubHistoryRepo struct {
	entries []domain.HistoryEntry
}

func (s *stubHistoryRepo) Create(ctx context.Context, entry *domain.HistoryEntry) error { return nil }
func (s *stubHistoryRepo) GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	return nil, domain.ErrNotFound
}
func (s *stubHistoryRepo) List(ctx context.Context, params repository.HistoryListParams) ([]domain.HistoryEntry, int64, error) {
	return s.entries, int64(len(s.entries)), nil
}
func (s *stubHistoryRepo) ListAwaitingReceipt(ctx context.Context, limit, maxAttempts int) ([]domain.HistoryEntry, error) {
	return nil, nil
}
func (s *stubHistoryRepo) SetAcknowledgement(ctx context.Context, id, ack, ackDate string) error {
	return nil
}
func (s *stubHistoryRepo) IncrementDLRAttempts(ctx context.Context, id string) error { return nil }

func newMessageTestApp(t *testing.T, dispatcher Dispatcher, drainer Drainer, queue repository.QueueRepository, history repository.HistoryRepository) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterMessageRoutes(app, dispatcher, drainer, nil, queue, history); err != nil {
		t.Fatalf("RegisterMessageRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestSendMessageEndpoint(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{
		sendFn: func(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.HistoryEntry, error) {
			if msg.Mobile != "21612345678" {
				return nil, fmt.Errorf("%w: unexpected mobile", domain.ErrValidation)
			}
			return &domain.HistoryEntry{
				ID:         "h-1",
				GatewayID:  msg.GatewayID,
				Name:       domain.HistorySent,
				Mobile:     msg.Mobile,
				Text:       msg.Text,
				MessageID:  "msg-1",
				StatusCode: "200",
				CreatedAt:  time.Now(),
			}, nil
		},
	}

	app := newMessageTestApp(t, dispatcher, nil, &stubQueueRepo{}, &stubHistoryRepo{})

	body := `{"gatewayId":"gw-1","mobile":"21612345678","text":"hello"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/messages", body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(respBody))
	}

	var got map[string]any
	if err := json.Unmarshal(respBody, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if got["id"] != "h-1" {
		t.Fatalf("id = %v, want h-1", got["id"])
	}
	if got["name"] != domain.HistorySent {
		t.Fatalf("name = %v", got["name"])
	}
}

func TestSendMessageEndpointErrorMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: fmt.Errorf("%w: bad", domain.ErrValidation), wantStatus: fiber.StatusBadRequest},
		{name: "permission", err: fmt.Errorf("%w: denied", domain.ErrPermission), wantStatus: fiber.StatusForbidden},
		{name: "configuration", err: fmt.Errorf("%w: no gateway", domain.ErrConfiguration), wantStatus: fiber.StatusUnprocessableEntity},
		{name: "not found", err: fmt.Errorf("%w: gone", domain.ErrNotFound), wantStatus: fiber.StatusNotFound},
		{name: "internal", err: errors.New("boom"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dispatcher := &stubDispatcher{
				sendFn: func(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.HistoryEntry, error) {
					return nil, tc.err
				},
			}
			app := newMessageTestApp(t, dispatcher, nil, &stubQueueRepo{}, &stubHistoryRepo{})

			body := `{"gatewayId":"gw-1","mobile":"21612345678","text":"hello"}`
			resp, _ := performRequest(t, app, http.MethodPost, "/v1/messages", body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestQueueMessageEndpoint(t *testing.T) {
	t.Parallel()

	dispatcher := &stubDispatcher{
		enqueueFn: func(ctx context.Context, principal service.Principal, msg *domain.OutboundMessage) (*domain.QueueEntry, error) {
			return &domain.QueueEntry{
				ID:        "q-1",
				GatewayID: msg.GatewayID,
				Mobile:    msg.Mobile,
				Text:      msg.Text,
				State:     domain.QueueStateQueued,
			}, nil
		},
	}
	app := newMessageTestApp(t, dispatcher, nil, &stubQueueRepo{}, &stubHistoryRepo{})

	body := `{"gatewayId":"gw-1","mobile":"21612345678","text":"later"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/messages/queue", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(respBody))
	}

	var got map[string]any
	if err := json.Unmarshal(respBody, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if got["state"] != domain.QueueStateQueued.String() {
		t.Fatalf("state = %v, want queued", got["state"])
	}
}

func TestSendMessageInvalidClassRejected(t *testing.T) {
	t.Parallel()

	app := newMessageTestApp(t, &stubDispatcher{}, nil, &stubQueueRepo{}, &stubHistoryRepo{})

	body := `{"gatewayId":"gw-1","mobile":"21612345678","text":"hello","class":"9"}`
	resp, _ := performRequest(t, app, http.MethodPost, "/v1/messages", body)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListQueueEndpoint(t *testing.T) {
	t.Parallel()

	queue := &stubQueueRepo{entries: []domain.QueueEntry{
		{ID: "q-1", GatewayID: "gw-1", Mobile: "21612345678", Text: "a", State: domain.QueueStateQueued},
		{ID: "q-2", GatewayID: "gw-1", Mobile: "21612345678", Text: "b", State: domain.QueueStateError, Error: "boom"},
	}}
	app := newMessageTestApp(t, &stubDispatcher{}, nil, queue, &stubHistoryRepo{})

	resp, respBody := performRequest(t, app, http.MethodGet, "/v1/queue", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got listQueueResponse
	if err := json.Unmarshal(respBody, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(got.Data) != 2 {
		t.Fatalf("data = %d, want 2", len(got.Data))
	}
	if got.Meta.Total != 2 {
		t.Fatalf("total = %d, want 2", got.Meta.Total)
	}
	if got.Data[1].Error != "boom" {
		t.Fatalf("error = %q", got.Data[1].Error)
	}
}

func TestListQueueInvalidStateRejected(t *testing.T) {
	t.Parallel()

	app := newMessageTestApp(t, &stubDispatcher{}, nil, &stubQueueRepo{}, &stubHistoryRepo{})

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/queue?state=teleported", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListHistoryEndpointIncludesStatusText(t *testing.T) {
	t.Parallel()

	history := &stubHistoryRepo{entries: []domain.HistoryEntry{
		{ID: "h-1", GatewayID: "gw-1", Name: domain.HistorySent, Mobile: "21612345678", Text: "hi", StatusCode: "200"},
	}}
	app := newMessageTestApp(t, &stubDispatcher{}, nil, &stubQueueRepo{}, history)

	resp, respBody := performRequest(t, app, http.MethodGet, "/v1/history", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got listHistoryResponse
	if err := json.Unmarshal(respBody, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(got.Data) != 1 {
		t.Fatalf("data = %d, want 1", len(got.Data))
	}
	if got.Data[0].StatusText == "" {
		t.Fatal("expected a status text for code 200")
	}
}

func TestTriggerDrainEndpoint(t *testing.T) {
	t.Parallel()

	var gotBatch int
	drainer := &stubDrainer{drainFn: func(ctx context.Context, batchSize int) error {
		gotBatch = batchSize
		return nil
	}}
	app := newMessageTestApp(t, &stubDispatcher{}, drainer, &stubQueueRepo{}, &stubHistoryRepo{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/queue/drain?batchSize=7", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotBatch != 7 {
		t.Fatalf("batchSize = %d, want 7", gotBatch)
	}
}

func TestTriggerDrainNotConfigured(t *testing.T) {
	t.Parallel()

	app := newMessageTestApp(t, &stubDispatcher{}, nil, &stubQueueRepo{}, &stubHistoryRepo{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/queue/drain", "")
	if resp.StatusCode != fiber.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}
