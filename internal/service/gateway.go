package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GatewayService owns gateway configuration: CRUD, credential parameters
// and per-event templates.
type GatewayService struct {
	gateways repository.GatewayRepository
	logger   *zap.Logger
}

func NewGatewayService(gateways repository.GatewayRepository, logger *zap.Logger) (*GatewayService, error) {
	if gateways == nil {
		return nil, fmt.Errorf("gateway repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayService{gateways: gateways, logger: logger}, nil
}

func (s *GatewayService) Create(ctx context.Context, gw *domain.Gateway) (*domain.Gateway, error) {
	if gw == nil {
		return nil, fmt.Errorf("%w: gateway is required", domain.ErrValidation)
	}
	applyGatewayDefaults(gw)
	if err := gw.Validate(); err != nil {
		return nil, err
	}

	gw.ID = uuid.NewString()
	gw.State = domain.GatewayStateNew
	gw.Code = ""
	for i := range gw.Params {
		if err := gw.Params[i].Validate(); err != nil {
			return nil, err
		}
		gw.Params[i].ID = uuid.NewString()
		gw.Params[i].GatewayID = gw.ID
	}

	if err := s.gateways.Create(ctx, gw); err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	s.logger.Info("gateway created",
		zap.String("gatewayId", gw.ID),
		zap.String("name", gw.Name),
	)
	return gw, nil
}

func (s *GatewayService) Get(ctx context.Context, id string) (*domain.Gateway, error) {
	return s.gateways.GetByID(ctx, id)
}

func (s *GatewayService) List(ctx context.Context) ([]domain.Gateway, error) {
	return s.gateways.List(ctx)
}

// Update replaces the gateway's mutable configuration. State and
// verification code are owned by the verification flow and left untouched.
func (s *GatewayService) Update(ctx context.Context, gw *domain.Gateway) (*domain.Gateway, error) {
	if gw == nil {
		return nil, fmt.Errorf("%w: gateway is required", domain.ErrValidation)
	}

	existing, err := s.gateways.GetByID(ctx, gw.ID)
	if err != nil {
		return nil, err
	}

	applyGatewayDefaults(gw)
	if err := gw.Validate(); err != nil {
		return nil, err
	}
	gw.State = existing.State
	gw.Code = existing.Code

	if err := s.gateways.Update(ctx, gw); err != nil {
		return nil, fmt.Errorf("failed to update gateway: %w", err)
	}
	return s.gateways.GetByID(ctx, gw.ID)
}

func (s *GatewayService) ReplaceParams(ctx context.Context, gatewayID string, params []domain.GatewayParam) error {
	if _, err := s.gateways.GetByID(ctx, gatewayID); err != nil {
		return err
	}
	for i := range params {
		if err := params[i].Validate(); err != nil {
			return err
		}
		if params[i].ID == "" {
			params[i].ID = uuid.NewString()
		}
	}
	if err := s.gateways.ReplaceParams(ctx, gatewayID, params); err != nil {
		return fmt.Errorf("failed to replace gateway parameters: %w", err)
	}
	return nil
}

func (s *GatewayService) SetTemplate(ctx context.Context, tmpl *domain.MessageTemplate) error {
	if tmpl == nil {
		return fmt.Errorf("%w: template is required", domain.ErrValidation)
	}
	if err := tmpl.Validate(); err != nil {
		return err
	}
	if _, err := s.gateways.GetByID(ctx, tmpl.GatewayID); err != nil {
		return err
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if err := s.gateways.UpsertTemplate(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to store template: %w", err)
	}
	return nil
}

func (s *GatewayService) Templates(ctx context.Context, gatewayID string) ([]domain.MessageTemplate, error) {
	if _, err := s.gateways.GetByID(ctx, gatewayID); err != nil {
		return nil, err
	}

	templates := make([]domain.MessageTemplate, 0, len(domain.Events()))
	for _, event := range domain.Events() {
		tmpl, err := s.gateways.TemplateForEvent(ctx, gatewayID, event)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		templates = append(templates, *tmpl)
	}
	return templates, nil
}

func applyGatewayDefaults(gw *domain.Gateway) {
	if gw.Class == "" {
		gw.Class = domain.ClassPhone
	}
	if gw.Coding == "" {
		gw.Coding = domain.Coding7Bit
	}
	if gw.Priority == "" {
		gw.Priority = domain.Priority0
	}
	if gw.ValidityMinutes == 0 {
		gw.ValidityMinutes = 10
	}
	if gw.MobileParam == "" {
		gw.MobileParam = "mobile"
	}
	if gw.MessageParam == "" {
		gw.MessageParam = "sms"
	}
	if gw.FunctionParam == "" {
		gw.FunctionParam = "fct"
	}
}
