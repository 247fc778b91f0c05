package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/provider"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
)

type fakeGatewayRepo struct {
	mu        sync.Mutex
	gateways  map[string]*domain.Gateway
	templates map[string]*domain.MessageTemplate
	getErr    error
}

func newFakeGatewayRepo(gateways ...*domain.Gateway) *fakeGatewayRepo {
	repo := &fakeGatewayRepo{
		gateways:  make(map[string]*domain.Gateway),
		templates: make(map[string]*domain.MessageTemplate),
	}
	for _, gw := range gateways {
		repo.gateways[gw.ID] = gw
	}
	return repo
}

func (r *fakeGatewayRepo) Create(ctx context.Context, gw *domain.Gateway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[gw.ID] = gw
	return nil
}

func (r *fakeGatewayRepo) GetByID(ctx context.Context, id string) (*domain.Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	gw, ok := r.gateways[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *gw
	return &copied, nil
}

func (r *fakeGatewayRepo) GetDefault(ctx context.Context) (*domain.Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, gw := range r.gateways {
		copied := *gw
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeGatewayRepo) List(ctx context.Context) ([]domain.Gateway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Gateway, 0, len(r.gateways))
	for _, gw := range r.gateways {
		out = append(out, *gw)
	}
	return out, nil
}

func (r *fakeGatewayRepo) Update(ctx context.Context, gw *domain.Gateway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gateways[gw.ID]; !ok {
		return domain.ErrNotFound
	}
	r.gateways[gw.ID] = gw
	return nil
}

func (r *fakeGatewayRepo) SetState(ctx context.Context, id string, state domain.GatewayState, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gw, ok := r.gateways[id]
	if !ok {
		return domain.ErrNotFound
	}
	gw.State = state
	gw.Code = code
	return nil
}

func (r *fakeGatewayRepo) ReplaceParams(ctx context.Context, gatewayID string, params []domain.GatewayParam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gw, ok := r.gateways[gatewayID]
	if !ok {
		return domain.ErrNotFound
	}
	gw.Params = params
	return nil
}

func (r *fakeGatewayRepo) UpsertTemplate(ctx context.Context, tmpl *domain.MessageTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[tmpl.GatewayID+"/"+tmpl.Event.String()] = tmpl
	return nil
}

func (r *fakeGatewayRepo) TemplateForEvent(ctx context.Context, gatewayID string, event domain.Event) (*domain.MessageTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tmpl, ok := r.templates[gatewayID+"/"+event.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *tmpl
	return &copied, nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.QueueEntry
	order   []string

	enqueueErr error
	claimErr   error
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: make(map[string]*domain.QueueEntry)}
}

func (r *fakeQueueRepo) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enqueueErr != nil {
		return r.enqueueErr
	}
	copied := *entry
	r.entries[entry.ID] = &copied
	r.order = append(r.order, entry.ID)
	return nil
}

func (r *fakeQueueRepo) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *fakeQueueRepo) List(ctx context.Context, params repository.QueueListParams) ([]domain.QueueEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.QueueEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.entries[id])
	}
	return out, int64(len(out)), nil
}

func (r *fakeQueueRepo) ClaimBatch(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}

	claimed := make([]domain.QueueEntry, 0, limit)
	for _, id := range r.order {
		if len(claimed) == limit {
			break
		}
		entry := r.entries[id]
		if entry.State == domain.QueueStateSending || entry.State == domain.QueueStateSent {
			continue
		}
		entry.State = domain.QueueStateSending
		claimed = append(claimed, *entry)
	}
	return claimed, nil
}

func (r *fakeQueueRepo) MarkSent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || entry.State != domain.QueueStateSending {
		return domain.ErrConflict
	}
	entry.State = domain.QueueStateSent
	entry.Error = ""
	return nil
}

func (r *fakeQueueRepo) MarkError(ctx context.Context, id string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || entry.State == domain.QueueStateSent || entry.State == domain.QueueStateError {
		return domain.ErrConflict
	}
	entry.State = domain.QueueStateError
	entry.Error = errMsg
	return nil
}

func (r *fakeQueueRepo) byState(state domain.QueueState) []domain.QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.QueueEntry
	for _, id := range r.order {
		if r.entries[id].State == state {
			out = append(out, *r.entries[id])
		}
	}
	return out
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.HistoryEntry
	order   []string

	createErr error
	listErr   error
	ackErr    error
}

func newFakeHistoryRepo(entries ...*domain.HistoryEntry) *fakeHistoryRepo {
	repo := &fakeHistoryRepo{entries: make(map[string]*domain.HistoryEntry)}
	for _, entry := range entries {
		repo.entries[entry.ID] = entry
		repo.order = append(repo.order, entry.ID)
	}
	return repo
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	copied := *entry
	r.entries[entry.ID] = &copied
	r.order = append(r.order, entry.ID)
	return nil
}

func (r *fakeHistoryRepo) GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (r *fakeHistoryRepo) List(ctx context.Context, params repository.HistoryListParams) ([]domain.HistoryEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.HistoryEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.entries[id])
	}
	return out, int64(len(out)), nil
}

func (r *fakeHistoryRepo) ListAwaitingReceipt(ctx context.Context, limit, maxAttempts int) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.HistoryEntry, 0, limit)
	for _, id := range r.order {
		if len(out) == limit {
			break
		}
		entry := r.entries[id]
		if entry.AwaitsReceipt(maxAttempts) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) SetAcknowledgement(ctx context.Context, id, ack, ackDate string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ackErr != nil {
		return r.ackErr
	}
	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	entry.Acknowledgement = ack
	entry.AcknowledgementDate = ackDate
	return nil
}

func (r *fakeHistoryRepo) IncrementDLRAttempts(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	entry.DLRAttempts++
	return nil
}

func (r *fakeHistoryRepo) all() []domain.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.HistoryEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.entries[id])
	}
	return out
}

type fakeProvider struct {
	mu       sync.Mutex
	sendErr  error
	result   *provider.SendResult
	receipt  *provider.Receipt
	fetchErr error

	sends   []domain.OutboundMessage
	fetches []string
}

func (p *fakeProvider) Send(ctx context.Context, msg domain.OutboundMessage, gw domain.Gateway) (*provider.SendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, msg)
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	if p.result != nil {
		copied := *p.result
		return &copied, nil
	}
	return &provider.SendResult{
		MessageID:  fmt.Sprintf("msg-%d", len(p.sends)),
		StatusCode: "200",
		StatusMsg:  "OK",
	}, nil
}

func (p *fakeProvider) FetchReceipt(ctx context.Context, gw domain.Gateway, messageID string) (*provider.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches = append(p.fetches, messageID)
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	if p.receipt == nil {
		return nil, nil
	}
	copied := *p.receipt
	return &copied, nil
}

func (p *fakeProvider) sendCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sends)
}

func (p *fakeProvider) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fetches)
}

type denyAll struct{}

func (denyAll) HasSMSAccess(ctx context.Context, principal Principal) (bool, error) {
	return false, nil
}

type noopLimiter struct {
	waitErr error
	waits   int
}

func (l *noopLimiter) Allow(ctx context.Context, gateway string) (bool, error) {
	return true, nil
}

func (l *noopLimiter) Wait(ctx context.Context, gateway string) error {
	l.waits++
	return l.waitErr
}

func testGateway() *domain.Gateway {
	return &domain.Gateway{
		ID:              "gw-1",
		Name:            "Tunisie SMS",
		URL:             "https://sms.example.test/http",
		Method:          domain.MethodHTTP,
		State:           domain.GatewayStateConfirmed,
		ValidityMinutes: 10,
		Class:           domain.ClassPhone,
		Coding:          domain.Coding7Bit,
		Priority:        domain.Priority0,
		NoStop:          true,
		CharLimit:       true,
		MobileParam:     "mobile",
		MessageParam:    "sms",
		FunctionParam:   "fct",
		APIKey:          "secret",
	}
}

func testRegistry(p provider.Provider) *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register(domain.MethodHTTP, p)
	return registry
}
