package repository

import (
	"context"
	"errors"

	"tradecore/internal/apperr"
	"tradecore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyRepository is the narrow read surface over the company catalog.
type CompanyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
}

type companyRepo struct{ db *gorm.DB }

func NewCompanyRepository(db *gorm.DB) CompanyRepository { return &companyRepo{db: db} }

func (r *companyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var c model.Company
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	switch {
	case err == nil:
		return &c, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.NotFound("company not found").WithMeta("company_id", id).Wrap(err)
	default:
		return nil, apperr.Unavailable("company storage unavailable").Wrap(err)
	}
}
