package service

import (
	"context"

	"tradecore/internal/apperr"
	"tradecore/internal/model"
	"tradecore/internal/repository"

	"github.com/google/uuid"
)

// AccessResolver determines which side of a deal, if any, a company occupies.
// Every gated operation resolves the caller exactly once through this
// interface; it is a pure lookup against the latest version's party refs.
type AccessResolver interface {
	Resolve(ctx context.Context, dealID, companyID uuid.UUID) (model.Role, error)
	// RequireParty resolves the caller and returns the latest version row,
	// or Forbidden when the company is neither buyer nor seller.
	RequireParty(ctx context.Context, dealID, companyID uuid.UUID) (*model.Deal, model.Role, error)
}

type accessResolver struct {
	deals repository.DealRepository
}

func NewAccessResolver(deals repository.DealRepository) AccessResolver {
	return &accessResolver{deals: deals}
}

func (a *accessResolver) Resolve(ctx context.Context, dealID, companyID uuid.UUID) (model.Role, error) {
	deal, err := a.deals.FindLatest(ctx, dealID)
	if err != nil {
		return model.RoleNone, err
	}
	return deal.RoleOf(companyID), nil
}

func (a *accessResolver) RequireParty(ctx context.Context, dealID, companyID uuid.UUID) (*model.Deal, model.Role, error) {
	deal, err := a.deals.FindLatest(ctx, dealID)
	if err != nil {
		return nil, model.RoleNone, err
	}
	role := deal.RoleOf(companyID)
	if role == model.RoleNone {
		return nil, model.RoleNone, apperr.Forbidden("company is not a party of this deal").
			WithMeta("deal_id", dealID).
			WithMeta("company_id", companyID).
			WithMeta("required_role", "buyer or seller")
	}
	return deal, role, nil
}
