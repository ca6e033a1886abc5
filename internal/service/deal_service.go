package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradecore/internal/apperr"
	"tradecore/internal/dto"
	"tradecore/internal/model"
	"tradecore/internal/repository"
	"tradecore/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DealService owns the business rules of the deal lifecycle on top of the
// version store: item validity, role gating, proposal/accept/reject
// transitions and history emission. It never invents row keys or version
// numbers — those belong to the repository.
type DealService interface {
	CreateDeal(ctx context.Context, buyerID uuid.UUID, req dto.CreateDealRequest) (*dto.DealResponse, error)
	Get(ctx context.Context, dealID, callerID uuid.UUID, version *int) (*dto.DealResponse, error)
	CreateVersion(ctx context.Context, dealID, callerID uuid.UUID, req dto.DealOverridesRequest) (*dto.DealResponse, error)
	UpdateLatest(ctx context.Context, dealID, callerID uuid.UUID, req dto.UpdateDealRequest) (*dto.DealResponse, error)
	DeleteLastVersion(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DeleteVersionResponse, error)
	DeleteDeal(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DeleteDealResponse, error)
	Propose(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DealResponse, error)
	Accept(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DealResponse, error)
	Reject(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DealResponse, error)
	History(ctx context.Context, dealID, callerID uuid.UUID, filter dto.HistoryFilter) (*dto.HistoryListResponse, error)
}

type dealService struct {
	repo       repository.DealRepository
	history    repository.DealHistoryRepository
	documents  repository.DealDocumentRepository
	companies  repository.CompanyRepository
	access     AccessResolver
	dispatcher *worker.Dispatcher
}

func NewDealService(
	repo repository.DealRepository,
	history repository.DealHistoryRepository,
	documents repository.DealDocumentRepository,
	companies repository.CompanyRepository,
	access AccessResolver,
	dispatcher *worker.Dispatcher,
) DealService {
	return &dealService{
		repo:       repo,
		history:    history,
		documents:  documents,
		companies:  companies,
		access:     access,
		dispatcher: dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── CreateDeal ───────────────────────────────────────────────────────────────

func (s *dealService) CreateDeal(ctx context.Context, buyerID uuid.UUID, req dto.CreateDealRequest) (*dto.DealResponse, error) {
	sellerID, err := uuid.Parse(req.SellerID)
	if err != nil {
		return nil, apperr.InvalidInput("invalid seller_id").Wrap(err)
	}
	if sellerID == buyerID {
		return nil, apperr.InvalidInput("a company cannot open a deal with itself")
	}

	seller, err := s.companies.FindByID(ctx, sellerID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.InvalidInput("seller company does not exist").WithMeta("seller_id", sellerID)
		}
		return nil, err
	}
	if !seller.Active {
		return nil, apperr.InvalidInput("seller company is inactive").WithMeta("seller_id", sellerID)
	}

	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	deal := &model.Deal{
		BuyerCompanyID:  buyerID,
		SellerCompanyID: sellerID,
		Status:          model.DealStatusActive,
		DealType:        req.DealType,
		Comment:         req.Comment,
		Items:           items,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateFirst(ctx, tx, deal); err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &model.DealHistory{
			DealID:             deal.DealID,
			ChangedByCompanyID: &buyerID,
			ChangeType:         model.ChangeCreated,
			Description:        fmt.Sprintf("Deal created with %d item(s)", len(deal.Items)),
			After:              scalarSnapshot(deal),
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, deal, model.ChangeCreated, buyerID, sellerID)
	return dealToResponse(deal), nil
}

// buildItems validates and converts the request lines. Malformed items are
// rejected before any write.
func buildItems(reqs []dto.DealItemRequest) ([]model.DealItem, error) {
	if len(reqs) == 0 {
		return nil, apperr.InvalidInput("deal must contain at least one item")
	}
	items := make([]model.DealItem, 0, len(reqs))
	for i, r := range reqs {
		if !r.Quantity.IsPositive() {
			return nil, apperr.InvalidInput("item quantity must be positive").WithMeta("position", i+1)
		}
		if !r.UnitPrice.IsPositive() {
			return nil, apperr.InvalidInput("item unit price must be positive").WithMeta("position", i+1)
		}
		pos := r.Position
		if pos < 1 {
			pos = i + 1
		}
		unit := r.Unit
		if unit == "" {
			unit = "pcs"
		}
		items = append(items, model.DealItem{
			ProductName: r.ProductName,
			Article:     r.Article,
			Quantity:    r.Quantity,
			Unit:        unit,
			UnitPrice:   r.UnitPrice,
			Position:    pos,
		})
	}
	return items, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *dealService) Get(ctx context.Context, dealID, callerID uuid.UUID, version *int) (*dto.DealResponse, error) {
	_, _, err := s.access.RequireParty(ctx, dealID, callerID)
	if err != nil {
		return nil, err
	}
	var deal *model.Deal
	if version != nil {
		deal, err = s.repo.FindVersion(ctx, dealID, *version)
	} else {
		deal, err = s.repo.FindLatest(ctx, dealID)
	}
	if err != nil {
		return nil, err
	}
	return dealToResponse(deal), nil
}

// ── Version management ───────────────────────────────────────────────────────

func (s *dealService) CreateVersion(ctx context.Context, dealID, callerID uuid.UUID, req dto.DealOverridesRequest) (*dto.DealResponse, error) {
	prev, role, err := s.access.RequireParty(ctx, dealID, callerID)
	if err != nil {
		return nil, err
	}

	var next *model.Deal
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		next, err = s.repo.CloneAndIncrement(ctx, tx, dealID, overridesFromDTO(req))
		if err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &model.DealHistory{
			DealID:             dealID,
			ChangedByCompanyID: &callerID,
			ChangeType:         model.ChangeVersionCreated,
			Description:        fmt.Sprintf("Version %d created", next.Version),
			Before:             scalarSnapshot(prev),
			After:              scalarSnapshot(next),
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, next, model.ChangeVersionCreated, callerID, next.Counterparty(role))
	return dealToResponse(next), nil
}

func (s *dealService) UpdateLatest(ctx context.Context, dealID, callerID uuid.UUID, req dto.UpdateDealRequest) (*dto.DealResponse, error) {
	prev, _, err := s.access.RequireParty(ctx, dealID, callerID)
	if err != nil {
		return nil, err
	}

	var items []model.DealItem
	if req.Items != nil {
		if items, err = buildItems(req.Items); err != nil {
			return nil, err
		}
	}

	var updated *model.Deal
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		updated, err = s.repo.UpdateInPlace(ctx, tx, dealID, overridesFromDTO(req.DealOverridesRequest), items)
		if err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &model.DealHistory{
			DealID:             dealID,
			ChangedByCompanyID: &callerID,
			ChangeType:         model.ChangeUpdated,
			Description:        fmt.Sprintf("Version %d updated in place", updated.Version),
			Before:             scalarSnapshot(prev),
			After:              scalarSnapshot(updated),
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return dealToResponse(updated), nil
}

func (s *dealService) DeleteLastVersion(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DeleteVersionResponse, error) {
	prev, _, err := s.access.RequireParty(ctx, dealID, callerID)
	if err != nil {
		return nil, err
	}

	var removed int
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		removed, err = s.repo.DeleteLatest(ctx, tx, dealID)
		if err != nil {
			return err
		}
		descr := fmt.Sprintf("Version %d deleted, rolled back to version %d", removed, removed-1)
		if removed == 1 {
			descr = "Version 1 deleted, deal removed entirely"
		}
		return s.history.Create(ctx, tx, &model.DealHistory{
			DealID:             dealID,
			ChangedByCompanyID: &callerID,
			ChangeType:         model.ChangeVersionDeleted,
			Description:        descr,
			Before:             scalarSnapshot(prev),
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return &dto.DeleteVersionResponse{DealID: dealID.String(), DeletedVersion: removed}, nil
}

// DeleteDeal removes every version, item, document and history row of one
// business id. The one irreversible operation in the engine.
func (s *dealService) DeleteDeal(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DeleteDealResponse, error) {
	if _, _, err := s.access.RequireParty(ctx, dealID, callerID); err != nil {
		return nil, err
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if _, err := s.repo.DeleteAll(ctx, tx, dealID); err != nil {
			return err
		}
		if err := s.documents.DeleteByDeal(ctx, tx, dealID); err != nil {
			return err
		}
		return s.history.DeleteByDeal(ctx, tx, dealID)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &dto.DeleteDealResponse{DealID: dealID.String()}, nil
}

// ── Transitions ──────────────────────────────────────────────────────────────

func (s *dealService) Propose(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DealResponse, error) {
	return s.transition(ctx, dealID, callerID, model.ChangeProposed, func(deal *model.Deal, role model.Role) error {
		if deal.IsCompleted() {
			return completedTransitionErr(deal)
		}
		if deal.RejectedByCompanyID != nil {
			return rejectedTransitionErr(deal)
		}
		deal.ProposedByCompanyID = &callerID
		return nil
	})
}

func (s *dealService) Accept(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DealResponse, error) {
	return s.transition(ctx, dealID, callerID, model.ChangeAccepted, func(deal *model.Deal, role model.Role) error {
		if deal.IsCompleted() {
			return completedTransitionErr(deal)
		}
		if deal.RejectedByCompanyID != nil {
			return rejectedTransitionErr(deal)
		}
		now := time.Now().UTC()
		if role == model.RoleBuyer {
			deal.BuyerAcceptedAt = &now
		} else {
			deal.SellerAcceptedAt = &now
		}
		if deal.BuyerAcceptedAt != nil && deal.SellerAcceptedAt != nil {
			deal.Status = model.DealStatusCompleted
		}
		return nil
	})
}

// Reject invalidates prior partial acceptance. Rejecting a completed deal is
// disallowed — completion is terminal for a version; the parties amend via a
// new version instead.
func (s *dealService) Reject(ctx context.Context, dealID, callerID uuid.UUID) (*dto.DealResponse, error) {
	return s.transition(ctx, dealID, callerID, model.ChangeRejected, func(deal *model.Deal, role model.Role) error {
		if deal.IsCompleted() {
			return completedTransitionErr(deal)
		}
		deal.RejectedByCompanyID = &callerID
		deal.BuyerAcceptedAt = nil
		deal.SellerAcceptedAt = nil
		return nil
	})
}

func completedTransitionErr(deal *model.Deal) error {
	return apperr.InvalidTransition("deal is already completed").
		WithMeta("deal_id", deal.DealID).
		WithMeta("version", deal.Version)
}

// rejectedTransitionErr: rejection is terminal for a version; the parties
// restart the proposal by creating a new version.
func rejectedTransitionErr(deal *model.Deal) error {
	return apperr.InvalidTransition("this version was rejected, create a new version to renegotiate").
		WithMeta("deal_id", deal.DealID).
		WithMeta("version", deal.Version)
}

// transition loads the latest version, applies mutate, persists the approval
// state and the history entry atomically, then notifies the counterparty.
func (s *dealService) transition(ctx context.Context, dealID, callerID uuid.UUID, changeType string, mutate func(*model.Deal, model.Role) error) (*dto.DealResponse, error) {
	deal, role, err := s.access.RequireParty(ctx, dealID, callerID)
	if err != nil {
		return nil, err
	}

	before := scalarSnapshot(deal)
	if err := mutate(deal, role); err != nil {
		return nil, err
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.SaveScalars(ctx, tx, deal); err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &model.DealHistory{
			DealID:             dealID,
			ChangedByCompanyID: &callerID,
			ChangeType:         changeType,
			Description:        fmt.Sprintf("Version %d %s by %s", deal.Version, changeType, role),
			Before:             before,
			After:              scalarSnapshot(deal),
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify(ctx, deal, changeType, callerID, deal.Counterparty(role))
	if changeType == model.ChangeAccepted && deal.IsCompleted() {
		s.enqueueConfirmation(ctx, deal)
	}
	return dealToResponse(deal), nil
}

// ── History ──────────────────────────────────────────────────────────────────

func (s *dealService) History(ctx context.Context, dealID, callerID uuid.UUID, filter dto.HistoryFilter) (*dto.HistoryListResponse, error) {
	if _, _, err := s.access.RequireParty(ctx, dealID, callerID); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	entries, total, err := s.history.ListByDeal(ctx, dealID, filter.Page, filter.Limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyToItem(e))
	}
	return &dto.HistoryListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Async notifications (best-effort, fire & forget) ─────────────────────────

func (s *dealService) notify(ctx context.Context, deal *model.Deal, event string, actorID, recipientID uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.EnqueueDealEvent(ctx, worker.DealEventPayload{
		DealID:             deal.DealID,
		Version:            deal.Version,
		Event:              event,
		ActorCompanyID:     actorID,
		RecipientCompanyID: recipientID,
	})
	if err != nil {
		log.Warn().Err(err).Str("deal_id", deal.DealID.String()).Str("event", event).
			Msg("failed to enqueue deal notification")
	}
}

func (s *dealService) enqueueConfirmation(ctx context.Context, deal *model.Deal) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.EnqueueConfirmation(ctx, worker.ConfirmationPayload{
		DealID:  deal.DealID,
		Version: deal.Version,
	})
	if err != nil {
		log.Warn().Err(err).Str("deal_id", deal.DealID.String()).
			Msg("failed to enqueue deal confirmation")
	}
}

// ── Conversions ──────────────────────────────────────────────────────────────

// scalarSnapshot captures the per-version scalar state for history entries.
func scalarSnapshot(d *model.Deal) json.RawMessage {
	snap := map[string]any{
		"version":            d.Version,
		"status":             d.Status,
		"contract_number":    d.ContractNumber,
		"comment":            d.Comment,
		"starts_at":          d.StartsAt,
		"ends_at":            d.EndsAt,
		"proposed_by":        d.ProposedByCompanyID,
		"buyer_accepted_at":  d.BuyerAcceptedAt,
		"seller_accepted_at": d.SellerAcceptedAt,
		"rejected_by":        d.RejectedByCompanyID,
		"total_amount":       d.TotalAmount(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil
	}
	return data
}

func overridesFromDTO(req dto.DealOverridesRequest) model.DealOverrides {
	return model.DealOverrides{
		ContractNumber: req.ContractNumber,
		Comment:        req.Comment,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
	}
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func dealToResponse(d *model.Deal) *dto.DealResponse {
	items := make([]dto.DealItemResponse, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, dto.DealItemResponse{
			ProductName: item.ProductName,
			Article:     item.Article,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			Position:    item.Position,
			LineAmount:  item.LineAmount(),
		})
	}
	return &dto.DealResponse{
		DealID:           d.DealID.String(),
		RowKey:           d.RowKey.String(),
		Version:          d.Version,
		BuyerCompanyID:   d.BuyerCompanyID.String(),
		SellerCompanyID:  d.SellerCompanyID.String(),
		Status:           d.Status,
		DealType:         d.DealType,
		ProposedBy:       uuidPtrString(d.ProposedByCompanyID),
		BuyerAcceptedAt:  d.BuyerAcceptedAt,
		SellerAcceptedAt: d.SellerAcceptedAt,
		RejectedBy:       uuidPtrString(d.RejectedByCompanyID),
		ContractNumber:   d.ContractNumber,
		Comment:          d.Comment,
		StartsAt:         d.StartsAt,
		EndsAt:           d.EndsAt,
		Items:            items,
		TotalAmount:      d.TotalAmount(),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func historyToItem(e model.DealHistory) dto.HistoryItem {
	return dto.HistoryItem{
		ID:          e.ID.String(),
		DealID:      e.DealID.String(),
		ChangedBy:   uuidPtrString(e.ChangedByCompanyID),
		ChangeType:  e.ChangeType,
		Description: e.Description,
		Before:      e.Before,
		After:       e.After,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}
