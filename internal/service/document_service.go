package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tradecore/internal/apperr"
	"tradecore/internal/dto"
	"tradecore/internal/model"
	"tradecore/internal/repository"

	"github.com/google/uuid"
)

// DocumentService serves the per-(deal, document type) shared forms. Writes
// are deliberately last-writer-wins: the counterparty-edit warning is a
// client-side protocol driven by the updated_at/updated_by pair this service
// returns. Callers may opt into real optimistic locking by sending
// expected_updated_at on save.
type DocumentService interface {
	Get(ctx context.Context, dealID, callerID uuid.UUID, docType string) (*dto.DocumentResponse, error)
	Save(ctx context.Context, dealID, callerID uuid.UUID, docType string, req dto.SaveDocumentRequest) (*dto.DocumentResponse, error)
}

type documentService struct {
	repo   repository.DealDocumentRepository
	access AccessResolver
}

func NewDocumentService(repo repository.DealDocumentRepository, access AccessResolver) DocumentService {
	return &documentService{repo: repo, access: access}
}

func checkDocType(docType string) error {
	if !model.ValidDocType(docType) {
		return apperr.InvalidInput("unknown document type").WithMeta("doc_type", docType)
	}
	return nil
}

// Get returns the persisted form, or a synthetic empty one when nothing has
// been saved yet. Read-only probing never creates a row.
func (s *documentService) Get(ctx context.Context, dealID, callerID uuid.UUID, docType string) (*dto.DocumentResponse, error) {
	if err := checkDocType(docType); err != nil {
		return nil, err
	}
	if _, _, err := s.access.RequireParty(ctx, dealID, callerID); err != nil {
		return nil, err
	}

	doc, err := s.repo.Find(ctx, dealID, docType)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentMissing) {
			return &dto.DocumentResponse{
				DealID:    dealID.String(),
				DocType:   docType,
				Payload:   map[string]any{},
				UpdatedAt: time.Now().UTC(),
				UpdatedBy: nil,
			}, nil
		}
		return nil, err
	}
	return documentToResponse(doc), nil
}

// Save upserts the payload for the (deal, doc type) pair, stamping the writer
// and time. The whole payload is replaced — no merge.
func (s *documentService) Save(ctx context.Context, dealID, callerID uuid.UUID, docType string, req dto.SaveDocumentRequest) (*dto.DocumentResponse, error) {
	if err := checkDocType(docType); err != nil {
		return nil, err
	}
	if _, _, err := s.access.RequireParty(ctx, dealID, callerID); err != nil {
		return nil, err
	}

	if req.ExpectedUpdatedAt != nil {
		existing, err := s.repo.Find(ctx, dealID, docType)
		switch {
		case err == nil:
			stale := existing.UpdatedAt.After(*req.ExpectedUpdatedAt)
			byOther := existing.UpdatedByCompanyID != nil && *existing.UpdatedByCompanyID != callerID
			if stale && byOther {
				return nil, apperr.Conflict("document was changed by the counterparty").
					WithMeta("deal_id", dealID).
					WithMeta("doc_type", docType).
					WithMeta("updated_at", existing.UpdatedAt).
					WithMeta("updated_by", existing.UpdatedByCompanyID)
			}
		case errors.Is(err, repository.ErrDocumentMissing):
			// nothing persisted yet — the expectation trivially holds
		default:
			return nil, err
		}
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, apperr.InvalidInput("document payload is not serializable").Wrap(err)
	}

	doc := &model.DealDocument{
		DealID:             dealID,
		DocType:            docType,
		Payload:            payload,
		UpdatedByCompanyID: &callerID,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return nil, err
	}
	return documentToResponse(doc), nil
}

func documentToResponse(doc *model.DealDocument) *dto.DocumentResponse {
	payload := map[string]any{}
	if len(doc.Payload) > 0 {
		// Payload was validated on write; a decode failure here would mean
		// storage corruption, surfaced as an empty form rather than a 500.
		_ = json.Unmarshal(doc.Payload, &payload)
	}
	return &dto.DocumentResponse{
		DealID:    doc.DealID.String(),
		DocType:   doc.DocType,
		Payload:   payload,
		UpdatedAt: doc.UpdatedAt,
		UpdatedBy: uuidPtrString(doc.UpdatedByCompanyID),
	}
}
