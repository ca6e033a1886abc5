package repository

import (
	"context"
	"errors"

	"tradecore/internal/apperr"
	"tradecore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DealRepository is the version store: it owns row-key allocation and version
// sequencing for deals. Business rules (role checks, transition legality)
// live in the service layer; this layer only guarantees the physical
// invariants — (deal_id, version) uniqueness and atomic multi-row writes.
//
// Mutating methods accept an optional tx so the service layer can compose a
// deal write with its history entry in one transaction via the DB() escape
// hatch and runTx.
type DealRepository interface {
	DB() *gorm.DB
	CreateFirst(ctx context.Context, tx *gorm.DB, deal *model.Deal) error
	FindLatest(ctx context.Context, dealID uuid.UUID) (*model.Deal, error)
	FindVersion(ctx context.Context, dealID uuid.UUID, version int) (*model.Deal, error)
	CloneAndIncrement(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, overrides model.DealOverrides) (*model.Deal, error)
	UpdateInPlace(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, overrides model.DealOverrides, items []model.DealItem) (*model.Deal, error)
	SaveScalars(ctx context.Context, tx *gorm.DB, deal *model.Deal) error
	DeleteLatest(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) (int, error)
	DeleteAll(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) (bool, error)
}

type dealRepo struct{ db *gorm.DB }

func NewDealRepository(db *gorm.DB) DealRepository { return &dealRepo{db: db} }

func (r *dealRepo) DB() *gorm.DB { return r.db }

func (r *dealRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// translate maps storage errors onto the business taxonomy. Unique-violation
// on (deal_id, version) is the version-counter race; anything else that is
// not a missing row is an outage, never a Conflict.
func translate(err error, dealID uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("deal not found").WithMeta("deal_id", dealID).Wrap(err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("deal version was created concurrently, refetch latest and retry").
			WithMeta("deal_id", dealID).Wrap(err)
	default:
		return apperr.Unavailable("deal storage unavailable").WithMeta("deal_id", dealID).Wrap(err)
	}
}

// CreateFirst allocates the business id (when absent) and writes version 1
// together with its items.
func (r *dealRepo) CreateFirst(ctx context.Context, tx *gorm.DB, deal *model.Deal) error {
	if deal.DealID == uuid.Nil {
		deal.DealID = uuid.New()
	}
	if deal.RowKey == uuid.Nil {
		deal.RowKey = uuid.New()
	}
	deal.Version = 1
	for i := range deal.Items {
		deal.Items[i].ID = uuid.New()
		deal.Items[i].DealRowKey = deal.RowKey
	}
	return translate(r.conn(tx).WithContext(ctx).Create(deal).Error, deal.DealID)
}

// FindLatest resolves the row with the maximum version for the business id.
func (r *dealRepo) FindLatest(ctx context.Context, dealID uuid.UUID) (*model.Deal, error) {
	var d model.Deal
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("deal_id = ?", dealID).
		Order("version DESC").
		First(&d).Error
	if err != nil {
		return nil, translate(err, dealID)
	}
	return &d, nil
}

// FindVersion is an exact snapshot lookup, bypassing latest resolution.
func (r *dealRepo) FindVersion(ctx context.Context, dealID uuid.UUID, version int) (*model.Deal, error) {
	var d model.Deal
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("deal_id = ? AND version = ?", dealID, version).
		First(&d).Error
	if err != nil {
		return nil, translate(err, dealID)
	}
	return &d, nil
}

// CloneAndIncrement reads the current latest row, deep-copies its items,
// applies scalar overrides and inserts version latest+1 with a fresh row key.
// Two callers racing from the same latest both compute the same next version;
// the loser's insert hits the (deal_id, version) unique index and comes back
// as Conflict. No in-process locking needed.
func (r *dealRepo) CloneAndIncrement(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, overrides model.DealOverrides) (*model.Deal, error) {
	latest, err := r.FindLatest(ctx, dealID)
	if err != nil {
		return nil, err
	}
	next := model.NextVersion(latest, overrides)
	if err := r.conn(tx).WithContext(ctx).Create(next).Error; err != nil {
		return nil, translate(err, dealID)
	}
	return next, nil
}

// UpdateInPlace mutates the latest row's scalar fields and, when items is
// non-nil, replaces its item set. The version number does not change.
func (r *dealRepo) UpdateInPlace(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, overrides model.DealOverrides, items []model.DealItem) (*model.Deal, error) {
	latest, err := r.FindLatest(ctx, dealID)
	if err != nil {
		return nil, err
	}
	overrides.Apply(latest)

	conn := r.conn(tx).WithContext(ctx)
	if err := conn.Model(&model.Deal{}).Where("row_key = ?", latest.RowKey).
		Updates(map[string]any{
			"contract_number": latest.ContractNumber,
			"comment":         latest.Comment,
			"starts_at":       latest.StartsAt,
			"ends_at":         latest.EndsAt,
		}).Error; err != nil {
		return nil, translate(err, dealID)
	}

	if items != nil {
		if err := conn.Where("deal_row_key = ?", latest.RowKey).Delete(&model.DealItem{}).Error; err != nil {
			return nil, translate(err, dealID)
		}
		for i := range items {
			items[i].ID = uuid.New()
			items[i].DealRowKey = latest.RowKey
		}
		if len(items) > 0 {
			if err := conn.Create(&items).Error; err != nil {
				return nil, translate(err, dealID)
			}
		}
		latest.Items = items
	}
	return latest, nil
}

// SaveScalars persists scalar/approval state of one specific version row.
// Used by the lifecycle service for propose/accept/reject transitions.
func (r *dealRepo) SaveScalars(ctx context.Context, tx *gorm.DB, deal *model.Deal) error {
	err := r.conn(tx).WithContext(ctx).Model(&model.Deal{}).
		Where("row_key = ?", deal.RowKey).
		Updates(map[string]any{
			"status":                 deal.Status,
			"proposed_by_company_id": deal.ProposedByCompanyID,
			"buyer_accepted_at":      deal.BuyerAcceptedAt,
			"seller_accepted_at":     deal.SellerAcceptedAt,
			"rejected_by_company_id": deal.RejectedByCompanyID,
		}).Error
	return translate(err, deal.DealID)
}

// DeleteLatest removes the physical row at the current latest version along
// with its items and returns the removed version number. Deleting the only
// remaining version makes the business id fully absent.
func (r *dealRepo) DeleteLatest(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) (int, error) {
	latest, err := r.FindLatest(ctx, dealID)
	if err != nil {
		return 0, err
	}
	conn := r.conn(tx).WithContext(ctx)
	if err := conn.Where("deal_row_key = ?", latest.RowKey).Delete(&model.DealItem{}).Error; err != nil {
		return 0, translate(err, dealID)
	}
	if err := conn.Where("row_key = ?", latest.RowKey).Delete(&model.Deal{}).Error; err != nil {
		return 0, translate(err, dealID)
	}
	return latest.Version, nil
}

// DeleteAll removes every version row and item row of the business id.
// Scoped strictly to one deal — this is not a generic cascade.
func (r *dealRepo) DeleteAll(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) (bool, error) {
	conn := r.conn(tx).WithContext(ctx)

	var rowKeys []uuid.UUID
	if err := conn.Model(&model.Deal{}).Where("deal_id = ?", dealID).
		Pluck("row_key", &rowKeys).Error; err != nil {
		return false, translate(err, dealID)
	}
	if len(rowKeys) == 0 {
		return false, nil
	}
	if err := conn.Where("deal_row_key IN ?", rowKeys).Delete(&model.DealItem{}).Error; err != nil {
		return false, translate(err, dealID)
	}
	if err := conn.Where("deal_id = ?", dealID).Delete(&model.Deal{}).Error; err != nil {
		return false, translate(err, dealID)
	}
	return true, nil
}
