package worker

// confirmation_worker.go
// When both parties accept a deal, this worker renders a PDF summary of the
// completed version and mails it to buyer and seller.

import (
	"context"
	"encoding/json"
	"fmt"

	"tradecore/internal/infra"
	"tradecore/internal/repository"

	"github.com/rs/zerolog/log"
)

type ConfirmationWorker struct {
	deals       repository.DealRepository
	companies   repository.CompanyRepository
	mailer      *infra.Mailer
	breaker     *infra.Breaker
	storagePath string
}

func NewConfirmationWorker(
	deals repository.DealRepository,
	companies repository.CompanyRepository,
	mailer *infra.Mailer,
	breaker *infra.Breaker,
	storagePath string,
) *ConfirmationWorker {
	return &ConfirmationWorker{
		deals:       deals,
		companies:   companies,
		mailer:      mailer,
		breaker:     breaker,
		storagePath: storagePath,
	}
}

func (w *ConfirmationWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ConfirmationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("confirmation_worker: invalid payload")
		return nil
	}

	deal, err := w.deals.FindVersion(ctx, payload.DealID, payload.Version)
	if err != nil {
		return fmt.Errorf("confirmation_worker: load deal: %w", err)
	}
	buyer, err := w.companies.FindByID(ctx, deal.BuyerCompanyID)
	if err != nil {
		return fmt.Errorf("confirmation_worker: load buyer: %w", err)
	}
	seller, err := w.companies.FindByID(ctx, deal.SellerCompanyID)
	if err != nil {
		return fmt.Errorf("confirmation_worker: load seller: %w", err)
	}

	pdfPath, err := infra.GenerateDealPDF(deal, buyer.Name, seller.Name, w.storagePath)
	if err != nil {
		return fmt.Errorf("confirmation_worker: render pdf: %w", err)
	}

	subject := fmt.Sprintf("Deal completed — confirmation %s/v%d", deal.DealID, deal.Version)
	body := fmt.Sprintf(
		"The deal between %s and %s is now completed.\nTotal amount: %s.\nThe confirmation document is attached.",
		buyer.Name, seller.Name, deal.TotalAmount().StringFixed(2),
	)

	for _, to := range []string{buyer.ContactEmail, seller.ContactEmail} {
		sendErr := w.breaker.Execute(func() error {
			return w.mailer.Send(to, subject, body, pdfPath)
		})
		if sendErr != nil {
			return fmt.Errorf("confirmation_worker: send to %s: %w", to, sendErr)
		}
	}

	log.Info().
		Str("deal_id", deal.DealID.String()).
		Int("version", deal.Version).
		Msg("confirmation_worker: confirmation sent to both parties")
	return nil
}
