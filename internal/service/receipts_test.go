package service

import (
	"context"
	"errors"
	"testing"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/provider"
)

func newTestReceiptService(t *testing.T, history *fakeHistoryRepo, gateways *fakeGatewayRepo, p *fakeProvider) *ReceiptService {
	t.Helper()

	svc, err := NewReceiptService(history, gateways, testRegistry(p), 0, 0, nil)
	if err != nil {
		t.Fatalf("NewReceiptService() error = %v", err)
	}
	return svc
}

func sentHistoryEntry(id, gatewayID, messageID string) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		ID:        id,
		GatewayID: gatewayID,
		Name:      domain.HistorySent,
		Mobile:    "21612345678",
		Text:      "hello",
		MessageID: messageID,
	}
}

func TestPollStoresAcknowledgement(t *testing.T) {
	t.Parallel()

	gw := testGateway()
	entry := sentHistoryEntry("h-1", gw.ID, "msg-1")
	history := newFakeHistoryRepo(entry)
	p := &fakeProvider{receipt: &provider.Receipt{
		MessageID:           "msg-1",
		Acknowledgement:     "delivered",
		AcknowledgementDate: "2026-08-29 10:00:00",
	}}

	svc := newTestReceiptService(t, history, newFakeGatewayRepo(gw), p)
	if err := svc.Poll(context.Background(), 0); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	updated, err := history.GetByID(context.Background(), "h-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.Acknowledgement != "delivered" {
		t.Fatalf("acknowledgement = %q, want delivered", updated.Acknowledgement)
	}
	if updated.AcknowledgementDate != "2026-08-29 10:00:00" {
		t.Fatalf("acknowledgement date = %q", updated.AcknowledgementDate)
	}
	if updated.DLRAttempts != 1 {
		t.Fatalf("dlr attempts = %d, want 1", updated.DLRAttempts)
	}
}

func TestPollSkipsAcknowledgedAndPlaceholderEntries(t *testing.T) {
	t.Parallel()

	gw := testGateway()
	acked := sentHistoryEntry("h-1", gw.ID, "msg-1")
	acked.Acknowledgement = "delivered"
	placeholder := sentHistoryEntry("h-2", gw.ID, domain.PlaceholderMessageID)
	noID := sentHistoryEntry("h-3", gw.ID, "")

	history := newFakeHistoryRepo(acked, placeholder, noID)
	p := &fakeProvider{}

	svc := newTestReceiptService(t, history, newFakeGatewayRepo(gw), p)
	if err := svc.Poll(context.Background(), 0); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	if got := p.fetchCount(); got != 0 {
		t.Fatalf("fetch calls = %d, want 0", got)
	}
}

func TestPollCountsAttemptEvenWhenFetchFails(t *testing.T) {
	t.Parallel()

	gw := testGateway()
	entry := sentHistoryEntry("h-1", gw.ID, "msg-1")
	history := newFakeHistoryRepo(entry)
	p := &fakeProvider{fetchErr: errors.New("gateway unreachable")}

	svc := newTestReceiptService(t, history, newFakeGatewayRepo(gw), p)
	if err := svc.Poll(context.Background(), 0); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	updated, err := history.GetByID(context.Background(), "h-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.DLRAttempts != 1 {
		t.Fatalf("dlr attempts = %d, want 1", updated.DLRAttempts)
	}
	if updated.Acknowledgement != "" {
		t.Fatalf("acknowledgement = %q, want empty", updated.Acknowledgement)
	}
}

func TestPollAbandonsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	gw := testGateway()
	entry := sentHistoryEntry("h-1", gw.ID, "msg-1")
	history := newFakeHistoryRepo(entry)
	p := &fakeProvider{fetchErr: errors.New("no receipt yet")}

	svc := newTestReceiptService(t, history, newFakeGatewayRepo(gw), p)
	for i := 0; i < DefaultMaxReceiptAttempts+3; i++ {
		if err := svc.Poll(context.Background(), 0); err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
	}

	if got := p.fetchCount(); got != DefaultMaxReceiptAttempts {
		t.Fatalf("fetch calls = %d, want %d", got, DefaultMaxReceiptAttempts)
	}
}

func TestPollEmptyReceiptLeavesEntryPending(t *testing.T) {
	t.Parallel()

	gw := testGateway()
	entry := sentHistoryEntry("h-1", gw.ID, "msg-1")
	history := newFakeHistoryRepo(entry)
	p := &fakeProvider{receipt: &provider.Receipt{MessageID: "msg-1"}}

	svc := newTestReceiptService(t, history, newFakeGatewayRepo(gw), p)
	if err := svc.Poll(context.Background(), 0); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	updated, err := history.GetByID(context.Background(), "h-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.Acknowledgement != "" {
		t.Fatalf("acknowledgement = %q, want empty", updated.Acknowledgement)
	}
}

func TestPollListFailureReturned(t *testing.T) {
	t.Parallel()

	history := newFakeHistoryRepo()
	history.listErr = errors.New("db unavailable")

	svc := newTestReceiptService(t, history, newFakeGatewayRepo(), &fakeProvider{})
	if err := svc.Poll(context.Background(), 0); err == nil {
		t.Fatal("expected error from list failure")
	}
}
