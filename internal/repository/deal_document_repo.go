package repository

import (
	"context"
	"errors"

	"tradecore/internal/apperr"
	"tradecore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DealDocumentRepository persists one form payload per (deal, doc type) pair.
// Find returns gorm.ErrRecordNotFound untranslated-to-NotFound on purpose:
// an absent row is a normal state the service answers with a synthetic empty
// form, not an error the caller sees.
type DealDocumentRepository interface {
	Find(ctx context.Context, dealID uuid.UUID, docType string) (*model.DealDocument, error)
	Upsert(ctx context.Context, doc *model.DealDocument) error
	CountByDeal(ctx context.Context, dealID uuid.UUID) (int64, error)
	DeleteByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) error
}

// ErrDocumentMissing signals an absent (deal, doc type) row.
var ErrDocumentMissing = errors.New("deal document not persisted")

type dealDocumentRepo struct{ db *gorm.DB }

func NewDealDocumentRepository(db *gorm.DB) DealDocumentRepository {
	return &dealDocumentRepo{db: db}
}

func (r *dealDocumentRepo) Find(ctx context.Context, dealID uuid.UUID, docType string) (*model.DealDocument, error) {
	var doc model.DealDocument
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND doc_type = ?", dealID, docType).
		First(&doc).Error
	switch {
	case err == nil:
		return &doc, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrDocumentMissing
	default:
		return nil, apperr.Unavailable("document storage unavailable").WithMeta("deal_id", dealID).Wrap(err)
	}
}

// Upsert writes the payload last-writer-wins, keyed by the unique
// (deal_id, doc_type) pair. Writer and timestamp are always overwritten.
func (r *dealDocumentRepo) Upsert(ctx context.Context, doc *model.DealDocument) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "deal_id"}, {Name: "doc_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"payload", "updated_by_company_id", "updated_at",
		}),
	}).Create(doc).Error
	if err != nil {
		return apperr.Unavailable("document storage unavailable").WithMeta("deal_id", doc.DealID).Wrap(err)
	}
	return nil
}

func (r *dealDocumentRepo) CountByDeal(ctx context.Context, dealID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.DealDocument{}).
		Where("deal_id = ?", dealID).Count(&n).Error
	if err != nil {
		return 0, apperr.Unavailable("document storage unavailable").Wrap(err)
	}
	return n, nil
}

func (r *dealDocumentRepo) DeleteByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	if err := conn.WithContext(ctx).Where("deal_id = ?", dealID).Delete(&model.DealDocument{}).Error; err != nil {
		return apperr.Unavailable("document storage unavailable").WithMeta("deal_id", dealID).Wrap(err)
	}
	return nil
}
