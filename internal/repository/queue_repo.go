package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MohamedRayeneRomdhane/odoo-SMS-Module/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QueueListParams struct {
	State    *domain.QueueState
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type QueueRepository interface {
	Enqueue(ctx context.Context, entry *domain.QueueEntry) error
	GetByID(ctx context.Context, id string) (*domain.QueueEntry, error)
	List(ctx context.Context, params QueueListParams) ([]domain.QueueEntry, int64, error)
	ClaimBatch(ctx context.Context, limit int) ([]domain.QueueEntry, error)
	MarkSent(ctx context.Context, id string) error
	MarkError(ctx context.Context, id string, errMsg string) error
}

type GormQueueRepo struct {
	db *gorm.DB
}

func NewGormQueueRepo(db *gorm.DB) *GormQueueRepo {
	return &GormQueueRepo{db: db}
}

func (r *GormQueueRepo) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormQueueRepo) GetByID(ctx context.Context, id string) (*domain.QueueEntry, error) {
	var entry domain.QueueEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *GormQueueRepo) List(ctx context.Context, params QueueListParams) ([]domain.QueueEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.QueueEntry{})

	if params.State != nil {
		query = query.Where("state = ?", *params.State)
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

	var entries []domain.QueueEntry
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

// ClaimBatch atomically moves up to limit drainable entries to sending and
// returns them, oldest first. The row lock plus the state predicate make
// overlapping drain ticks claim disjoint sets.
func (r *GormQueueRepo) ClaimBatch(ctx context.Context, limit int) ([]domain.QueueEntry, error) {
	if limit < 1 {
		return nil, nil
	}

	var claimed []domain.QueueEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []domain.QueueEntry
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("state NOT IN ?", []domain.QueueState{domain.QueueStateSending, domain.QueueStateSent}).
			Order("created_at ASC").
			Limit(limit).
			Find(&candidates).Error
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		ids := make([]string, 0, len(candidates))
		for i := range candidates {
			ids = append(ids, candidates[i].ID)
		}

		result := tx.
			Model(&domain.QueueEntry{}).
			Where("id IN ? AND state NOT IN ?", ids,
				[]domain.QueueState{domain.QueueStateSending, domain.QueueStateSent}).
			Update("state", domain.QueueStateSending)
		if result.Error != nil {
			return result.Error
		}

		for i := range candidates {
			candidates[i].State = domain.QueueStateSending
		}
		claimed = candidates
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (r *GormQueueRepo) MarkSent(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("id = ? AND state = ?", id, domain.QueueStateSending).
		Updates(map[string]any{
			"state": domain.QueueStateSent,
			"error": "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormQueueRepo) MarkError(ctx context.Context, id string, errMsg string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("id = ? AND state IN ?", id,
			[]domain.QueueState{domain.QueueStateQueued, domain.QueueStateSending}).
		Updates(map[string]any{
			"state": domain.QueueStateError,
			"error": errMsg,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
