package repository

import (
	"context"

	"tradecore/internal/apperr"
	"tradecore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DealHistoryRepository stores the append-only audit trail. Entries are never
// mutated; the only delete path is DeleteByDeal, fired when the whole deal is
// removed (history of a vanished business id is not retrievable).
type DealHistoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *model.DealHistory) error
	ListByDeal(ctx context.Context, dealID uuid.UUID, page, limit int) ([]model.DealHistory, int64, error)
	DeleteByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) error
}

type dealHistoryRepo struct{ db *gorm.DB }

func NewDealHistoryRepository(db *gorm.DB) DealHistoryRepository {
	return &dealHistoryRepo{db: db}
}

func (r *dealHistoryRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *dealHistoryRepo) Create(ctx context.Context, tx *gorm.DB, entry *model.DealHistory) error {
	if err := r.conn(tx).WithContext(ctx).Create(entry).Error; err != nil {
		return apperr.Unavailable("history storage unavailable").WithMeta("deal_id", entry.DealID).Wrap(err)
	}
	return nil
}

func (r *dealHistoryRepo) ListByDeal(ctx context.Context, dealID uuid.UUID, page, limit int) ([]model.DealHistory, int64, error) {
	var entries []model.DealHistory
	var total int64

	q := r.db.WithContext(ctx).Model(&model.DealHistory{}).Where("deal_id = ?", dealID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Unavailable("history storage unavailable").Wrap(err)
	}
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, apperr.Unavailable("history storage unavailable").Wrap(err)
	}
	return entries, total, nil
}

func (r *dealHistoryRepo) DeleteByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) error {
	if err := r.conn(tx).WithContext(ctx).Where("deal_id = ?", dealID).Delete(&model.DealHistory{}).Error; err != nil {
		return apperr.Unavailable("history storage unavailable").WithMeta("deal_id", dealID).Wrap(err)
	}
	return nil
}
