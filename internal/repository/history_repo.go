package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"gorm.io/gorm"
)

type HistoryListParams struct {
	GatewayID *string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error)
	List(ctx context.Context, params HistoryListParams) ([]domain.HistoryEntry, int64, error)
	ListAwaitingReceipt(ctx context.Context, limit, maxAttempts int) ([]domain.HistoryEntry, error)
	SetAcknowledgement(ctx context.Context, id, ack, ackDate string) error
	IncrementDLRAttempts(ctx context.Context, id string) error
}

type GormHistoryRepo struct {
	db *gorm.DB
}

func NewGormHistoryRepo(db *gorm.DB) *GormHistoryRepo {
	return &GormHistoryRepo{db: db}
}

func (r *GormHistoryRepo) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormHistoryRepo) GetByID(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *GormHistoryRepo) List(ctx context.Context, params HistoryListParams) ([]domain.HistoryEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.HistoryEntry{})

	if params.GatewayID != nil {
		query = query.Where("gateway_id = ?", *params.GatewayID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var entries []domain.HistoryEntry
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListAwaitingReceipt selects entries still missing a delivery
// acknowledgement, newest first. Entries with the placeholder message id or
// with exhausted poll attempts are excluded.
func (r *GormHistoryRepo) ListAwaitingReceipt(ctx context.Context, limit, maxAttempts int) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("acknowledgement = ''").
		Where("message_id <> '' AND message_id <> ?", domain.PlaceholderMessageID).
		Where("dlr_attempts < ?", maxAttempts).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormHistoryRepo) SetAcknowledgement(ctx context.Context, id, ack, ackDate string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.HistoryEntry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"acknowledgement":      ack,
			"acknowledgement_date": ackDate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormHistoryRepo) IncrementDLRAttempts(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.HistoryEntry{}).
		Where("id = ?", id).
		Update("dlr_attempts", gorm.Expr("dlr_attempts + 1")).Error
}
