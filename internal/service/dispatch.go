package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/observability"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/provider"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Principal identifies the caller requesting a send. Passed explicitly;
// the engine keeps no ambient user state.
type Principal struct {
	ID   string
	Name string
}

// AccessChecker is the permission predicate consumed by the dispatcher.
type AccessChecker interface {
	HasSMSAccess(ctx context.Context, principal Principal) (bool, error)
}

// AllowAll grants SMS access to every principal. Useful for single-user
// deployments and tests.
type AllowAll struct{}

func (AllowAll) HasSMSAccess(ctx context.Context, principal Principal) (bool, error) {
	return true, nil
}

// DispatchService is the façade callers use to submit one message: it
// checks permission, resolves the transport, records the outcome, and
// mirrors every synchronous send into the queue log.
type DispatchService struct {
	gateways  repository.GatewayRepository
	queue     repository.QueueRepository
	history   repository.HistoryRepository
	providers *provider.Registry
	access    AccessChecker
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewDispatchService(
	gateways repository.GatewayRepository,
	queue repository.QueueRepository,
	history repository.HistoryRepository,
	providers *provider.Registry,
	access AccessChecker,
	logger *zap.Logger,
) (*DispatchService, error) {
	if gateways == nil || queue == nil || history == nil {
		return nil, fmt.Errorf("gateway, queue and history repositories are required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if access == nil {
		access = AllowAll{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		gateways:  gateways,
		queue:     queue,
		history:   history,
		providers: providers,
		access:    access,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SendNow submits one message synchronously. Success and transport failure
// both leave exactly one history entry; permission and configuration
// failures leave none.
func (s *DispatchService) SendNow(ctx context.Context, principal Principal, msg *domain.OutboundMessage) (*domain.HistoryEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	gw, adapter, err := s.resolve(ctx, principal, msg)
	if err != nil {
		return nil, err
	}

	sendStart := s.now()
	result, sendErr := adapter.Send(ctx, *msg, *gw)
	if s.metrics != nil {
		s.metrics.ObserveSendDuration(gw.Name, s.now().Sub(sendStart))
	}

	if sendErr != nil {
		if errors.Is(sendErr, domain.ErrConfiguration) || errors.Is(sendErr, domain.ErrValidation) {
			return nil, sendErr
		}

		entry := s.newHistoryEntry(gw, msg.Mobile, msg.Text, nil, sendErr)
		if err := s.history.Create(ctx, entry); err != nil {
			s.logger.Error("failed to record failed send attempt",
				zap.String("gatewayId", gw.ID),
				zap.Error(err),
			)
		}
		if s.metrics != nil {
			s.metrics.IncSendFailed(gw.Name, "transport_error")
		}
		return nil, fmt.Errorf("failed to send sms via %s: %w", gw.Name, sendErr)
	}

	entry := s.newHistoryEntry(gw, msg.Mobile, msg.Text, result, nil)
	if err := s.history.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("sms sent but history write failed: %w", err)
	}

	// Mirror the synchronous send into the queue so the queue stays one
	// unified log of everything ever asked to be sent.
	bookkeeping := s.newQueueEntry(gw, msg, domain.QueueStateSent)
	if err := s.queue.Enqueue(ctx, bookkeeping); err != nil {
		s.logger.Error("failed to mirror sent message into queue",
			zap.String("gatewayId", gw.ID),
			zap.Error(err),
		)
	}

	if s.metrics != nil {
		s.metrics.IncSendSucceeded(gw.Name)
	}

	return entry, nil
}

// Enqueue defers a message: it is persisted as queued and picked up by the
// next drain.
func (s *DispatchService) Enqueue(ctx context.Context, principal Principal, msg *domain.OutboundMessage) (*domain.QueueEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	gw, _, err := s.resolve(ctx, principal, msg)
	if err != nil {
		return nil, err
	}

	entry := s.newQueueEntry(gw, msg, domain.QueueStateQueued)
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to enqueue message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncQueued(gw.Name)
	}

	return entry, nil
}

func (s *DispatchService) resolve(ctx context.Context, principal Principal, msg *domain.OutboundMessage) (*domain.Gateway, provider.Provider, error) {
	if msg == nil {
		return nil, nil, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}
	if err := msg.Validate(); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(msg.GatewayID) == "" {
		return nil, nil, fmt.Errorf("%w: message has no gateway", domain.ErrConfiguration)
	}

	gw, err := s.gateways.GetByID(ctx, msg.GatewayID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: gateway %s does not exist", domain.ErrConfiguration, msg.GatewayID)
	}
	if err != nil {
		return nil, nil, err
	}

	allowed, err := s.access.HasSMSAccess(ctx, principal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to evaluate sms access: %w", err)
	}
	if !allowed {
		return nil, nil, fmt.Errorf("%w: no permission to access %s", domain.ErrPermission, gw.Name)
	}

	adapter := s.providers.For(gw.Method)
	if adapter == nil {
		return nil, nil, fmt.Errorf("%w: no transport registered for method %s", domain.ErrConfiguration, gw.Method)
	}

	return gw, adapter, nil
}

func (s *DispatchService) newHistoryEntry(gw *domain.Gateway, mobile, text string, result *provider.SendResult, sendErr error) *domain.HistoryEntry {
	return newHistoryEntry(s.now(), gw, mobile, text, result, sendErr)
}

// newHistoryEntry builds the audit record for one transport attempt, shared
// by the synchronous dispatcher and the drain loop.
func newHistoryEntry(now time.Time, gw *domain.Gateway, mobile, text string, result *provider.SendResult, sendErr error) *domain.HistoryEntry {
	entry := &domain.HistoryEntry{
		ID:        uuid.NewString(),
		GatewayID: gw.ID,
		Mobile:    mobile,
		Text:      text,
		CreatedAt: now.UTC(),
	}

	if sendErr != nil {
		entry.Name = domain.HistoryError
		entry.StatusCode = "error"
		entry.StatusMsg = sendErr.Error()
		return entry
	}

	entry.Name = domain.HistorySent
	if result != nil {
		entry.MessageID = result.MessageID
		entry.StatusCode = result.StatusCode
		entry.StatusMobile = result.StatusMobile
		entry.StatusMsg = result.StatusMsg
	}
	return entry
}

func (s *DispatchService) newQueueEntry(gw *domain.Gateway, msg *domain.OutboundMessage, state domain.QueueState) *domain.QueueEntry {
	params := msg.EffectiveParams(gw)
	return &domain.QueueEntry{
		ID:              uuid.NewString(),
		GatewayID:       gw.ID,
		Mobile:          msg.Mobile,
		Text:            msg.Text,
		State:           state,
		ValidityMinutes: params.ValidityMinutes,
		Class:           params.Class,
		Coding:          params.Coding,
		Priority:        params.Priority,
		DeferredMinutes: params.DeferredMinutes,
		Tag:             params.Tag,
		NoStop:          params.NoStop,
		CreatedAt:       s.now().UTC(),
	}
}
