package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/template"
	"go.uber.org/zap"
)

// EventService turns business events into templated notification sends.
// Events with no enabled template on the default gateway are silently
// ignored.
type EventService struct {
	gateways repository.GatewayRepository
	dispatch *DispatchService
	logger   *zap.Logger
}

func NewEventService(
	gateways repository.GatewayRepository,
	dispatch *DispatchService,
	logger *zap.Logger,
) (*EventService, error) {
	if gateways == nil {
		return nil, fmt.Errorf("gateway repository is required")
	}
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EventService{
		gateways: gateways,
		dispatch: dispatch,
		logger:   logger,
	}, nil
}

// NotifyEvent renders the event's template against the record and sends the
// result to the given mobile. Returns the history entry, or (nil, nil) when
// the event carries no enabled template.
func (s *EventService) NotifyEvent(ctx context.Context, principal Principal, event domain.Event, mobile string, record template.Renderable) (*domain.HistoryEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !event.IsValid() {
		return nil, fmt.Errorf("%w: invalid event %q", domain.ErrValidation, event)
	}
	if strings.TrimSpace(mobile) == "" {
		return nil, fmt.Errorf("%w: recipient mobile is required", domain.ErrValidation)
	}

	gw, err := s.gateways.GetDefault(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no gateway configured", domain.ErrConfiguration)
	}
	if err != nil {
		return nil, err
	}

	tmpl, err := s.gateways.TemplateForEvent(ctx, gw.ID, event)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !tmpl.Enabled || strings.TrimSpace(tmpl.Body) == "" {
		return nil, nil
	}

	body := template.RenderRecord(tmpl.Body, record)

	entry, err := s.dispatch.SendNow(ctx, principal, &domain.OutboundMessage{
		GatewayID: gw.ID,
		Mobile:    mobile,
		Text:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to notify %s: %w", event, err)
	}

	s.logger.Info("event notification sent",
		zap.String("event", event.String()),
		zap.String("gatewayId", gw.ID),
		zap.String("mobile", mobile),
	)
	return entry, nil
}
