package repository

import (
	"context"
	"errors"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"gorm.io/gorm"
)

type GatewayRepository interface {
	Create(ctx context.Context, gw *domain.Gateway) error
	GetByID(ctx context.Context, id string) (*domain.Gateway, error)
	GetDefault(ctx context.Context) (*domain.Gateway, error)
	List(ctx context.Context) ([]domain.Gateway, error)
	Update(ctx context.Context, gw *domain.Gateway) error
	SetState(ctx context.Context, id string, state domain.GatewayState, code string) error
	ReplaceParams(ctx context.Context, gatewayID string, params []domain.GatewayParam) error
	UpsertTemplate(ctx context.Context, tmpl *domain.MessageTemplate) error
	TemplateForEvent(ctx context.Context, gatewayID string, event domain.Event) (*domain.MessageTemplate, error)
}

type GormGatewayRepo struct {
	db *gorm.DB
}

func NewGormGatewayRepo(db *gorm.DB) *GormGatewayRepo {
	return &GormGatewayRepo{db: db}
}

func (r *GormGatewayRepo) Create(ctx context.Context, gw *domain.Gateway) error {
	return r.db.WithContext(ctx).Create(gw).Error
}

func (r *GormGatewayRepo) GetByID(ctx context.Context, id string) (*domain.Gateway, error) {
	var gw domain.Gateway
	err := r.db.WithContext(ctx).
		Preload("Params").
		First(&gw, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &gw, nil
}

// GetDefault returns the oldest configured gateway. Single-tenant setups
// have exactly one.
func (r *GormGatewayRepo) GetDefault(ctx context.Context) (*domain.Gateway, error) {
	var gw domain.Gateway
	err := r.db.WithContext(ctx).
		Preload("Params").
		Order("created_at ASC").
		First(&gw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &gw, nil
}

func (r *GormGatewayRepo) List(ctx context.Context) ([]domain.Gateway, error) {
	var gateways []domain.Gateway
	err := r.db.WithContext(ctx).
		Preload("Params").
		Order("created_at ASC").
		Find(&gateways).Error
	if err != nil {
		return nil, err
	}
	return gateways, nil
}

func (r *GormGatewayRepo) Update(ctx context.Context, gw *domain.Gateway) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Gateway{}).
		Where("id = ?", gw.ID).
		Omit("Params").
		Updates(gw)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormGatewayRepo) SetState(ctx context.Context, id string, state domain.GatewayState, code string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Gateway{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state": state,
			"code":  code,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormGatewayRepo) ReplaceParams(ctx context.Context, gatewayID string, params []domain.GatewayParam) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gateway_id = ?", gatewayID).Delete(&domain.GatewayParam{}).Error; err != nil {
			return err
		}
		if len(params) == 0 {
			return nil
		}
		for i := range params {
			params[i].GatewayID = gatewayID
		}
		return tx.Create(&params).Error
	})
}

func (r *GormGatewayRepo) UpsertTemplate(ctx context.Context, tmpl *domain.MessageTemplate) error {
	var existing domain.MessageTemplate
	err := r.db.WithContext(ctx).
		Where("gateway_id = ? AND event = ?", tmpl.GatewayID, tmpl.Event).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(tmpl).Error
	}
	if err != nil {
		return err
	}

	tmpl.ID = existing.ID
	return r.db.WithContext(ctx).
		Model(&domain.MessageTemplate{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"body":    tmpl.Body,
			"enabled": tmpl.Enabled,
		}).Error
}

func (r *GormGatewayRepo) TemplateForEvent(ctx context.Context, gatewayID string, event domain.Event) (*domain.MessageTemplate, error) {
	var tmpl domain.MessageTemplate
	err := r.db.WithContext(ctx).
		Where("gateway_id = ? AND event = ?", gatewayID, event).
		First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}
