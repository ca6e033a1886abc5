package service_test

import (
	"context"
	"testing"
	"time"

	"tradecore/internal/apperr"
	"tradecore/internal/dto"
	"tradecore/internal/model"
	"tradecore/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentFixture struct {
	*dealFixture
	docs   service.DocumentService
	dealID uuid.UUID
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	f := newDealFixture(t)
	created := f.createDeal(t)

	access := service.NewAccessResolver(f.dealRepo)
	return &documentFixture{
		dealFixture: f,
		docs:        service.NewDocumentService(f.documents, access),
		dealID:      mustUUID(t, created.DealID),
	}
}

func TestDocumentGet_DefaultEmptyWithoutWrite(t *testing.T) {
	f := newDocumentFixture(t)

	resp, err := f.docs.Get(context.Background(), f.dealID, f.buyerID, model.DocTypeBill)
	require.NoError(t, err)
	assert.Empty(t, resp.Payload)
	assert.Nil(t, resp.UpdatedBy)
	assert.False(t, resp.UpdatedAt.IsZero())

	// probing a never-saved form must not create a row
	n, err := f.documents.CountByDeal(context.Background(), f.dealID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDocumentGet_UnknownType(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.docs.Get(context.Background(), f.dealID, f.buyerID, "waybill")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
}

func TestDocumentSave_StrangerForbidden(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.docs.Save(context.Background(), f.dealID, uuid.New(), model.DocTypeBill, dto.SaveDocumentRequest{
		Payload: map[string]any{"number": "B-1"},
	})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestDocumentSave_LastWriterWins(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	_, err := f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeSupplyContract, dto.SaveDocumentRequest{
		Payload: map[string]any{"clause": "buyer draft"},
	})
	require.NoError(t, err)

	saved, err := f.docs.Save(ctx, f.dealID, f.sellerID, model.DocTypeSupplyContract, dto.SaveDocumentRequest{
		Payload: map[string]any{"clause": "seller redline"},
	})
	require.NoError(t, err)

	got, err := f.docs.Get(ctx, f.dealID, f.buyerID, model.DocTypeSupplyContract)
	require.NoError(t, err)
	assert.Equal(t, "seller redline", got.Payload["clause"])
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, f.sellerID.String(), *got.UpdatedBy)
	assert.Equal(t, saved.UpdatedAt.Unix(), got.UpdatedAt.Unix())

	// the buyer draft is gone entirely — saves replace, never merge
	assert.Len(t, got.Payload, 1)
}

func TestDocumentSave_IndependentPerType(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	_, err := f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeBill, dto.SaveDocumentRequest{
		Payload: map[string]any{"number": "B-7"},
	})
	require.NoError(t, err)

	// other types on the same deal remain synthetic empty forms
	act, err := f.docs.Get(ctx, f.dealID, f.sellerID, model.DocTypeAct)
	require.NoError(t, err)
	assert.Empty(t, act.Payload)

	n, err := f.documents.CountByDeal(ctx, f.dealID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDocumentSave_ExpectedUpdatedAtConflict(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	first, err := f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeOrder, dto.SaveDocumentRequest{
		Payload: map[string]any{"qty": 2},
	})
	require.NoError(t, err)
	stamp := first.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	_, err = f.docs.Save(ctx, f.dealID, f.sellerID, model.DocTypeOrder, dto.SaveDocumentRequest{
		Payload: map[string]any{"qty": 3},
	})
	require.NoError(t, err)

	// the buyer still holds the pre-seller stamp — save must be rejected
	_, err = f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeOrder, dto.SaveDocumentRequest{
		Payload:           map[string]any{"qty": 4},
		ExpectedUpdatedAt: &stamp,
	})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	// without the expectation the same save goes through last-writer-wins
	_, err = f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeOrder, dto.SaveDocumentRequest{
		Payload: map[string]any{"qty": 4},
	})
	require.NoError(t, err)
}

func TestDocumentSave_ExpectedUpdatedAtOwnEditNoConflict(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	first, err := f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeOrder, dto.SaveDocumentRequest{
		Payload: map[string]any{"qty": 2},
	})
	require.NoError(t, err)
	stamp := first.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	_, err = f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeOrder, dto.SaveDocumentRequest{
		Payload: map[string]any{"qty": 3},
	})
	require.NoError(t, err)

	// stale stamp, but the interleaved edit was the caller's own
	_, err = f.docs.Save(ctx, f.dealID, f.buyerID, model.DocTypeOrder, dto.SaveDocumentRequest{
		Payload:           map[string]any{"qty": 4},
		ExpectedUpdatedAt: &stamp,
	})
	require.NoError(t, err)
}

func TestDocumentSave_ExpectedUpdatedAtOnFreshForm(t *testing.T) {
	f := newDocumentFixture(t)
	past := time.Now().UTC().Add(-time.Hour)

	// nothing persisted yet — the expectation trivially holds
	_, err := f.docs.Save(context.Background(), f.dealID, f.buyerID, model.DocTypeInvoice, dto.SaveDocumentRequest{
		Payload:           map[string]any{"amount": "200.00"},
		ExpectedUpdatedAt: &past,
	})
	require.NoError(t, err)
}
