package worker

// deal_event_worker.go
// Processes counterparty notification jobs from QueueDealEvents: resolves the
// recipient company's contact email and sends a short notification mail.
// SMTP calls go through the circuit breaker so a downed relay fails fast
// instead of tying up the pool.

import (
	"context"
	"encoding/json"
	"fmt"

	"tradecore/internal/infra"
	"tradecore/internal/model"
	"tradecore/internal/repository"

	"github.com/rs/zerolog/log"
)

var eventSubjects = map[string]string{
	model.ChangeCreated:        "New deal opened with your company",
	model.ChangeVersionCreated: "Deal amended — a new version awaits your review",
	model.ChangeProposed:       "Deal proposed for approval",
	model.ChangeAccepted:       "Counterparty accepted the deal",
	model.ChangeRejected:       "Counterparty rejected the deal",
}

type DealEventWorker struct {
	companies repository.CompanyRepository
	mailer    *infra.Mailer
	breaker   *infra.Breaker
}

func NewDealEventWorker(companies repository.CompanyRepository, mailer *infra.Mailer, breaker *infra.Breaker) *DealEventWorker {
	return &DealEventWorker{companies: companies, mailer: mailer, breaker: breaker}
}

func (w *DealEventWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload DealEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("deal_event_worker: invalid payload")
		return nil // malformed jobs are not retryable
	}

	recipient, err := w.companies.FindByID(ctx, payload.RecipientCompanyID)
	if err != nil {
		return fmt.Errorf("deal_event_worker: resolve recipient: %w", err)
	}
	actor, err := w.companies.FindByID(ctx, payload.ActorCompanyID)
	if err != nil {
		return fmt.Errorf("deal_event_worker: resolve actor: %w", err)
	}

	subject, ok := eventSubjects[payload.Event]
	if !ok {
		subject = "Deal updated"
	}
	body := fmt.Sprintf(
		"%s\n\nDeal %s (version %d) was changed by %s.\nLog in to review the current state.",
		subject, payload.DealID, payload.Version, actor.Name,
	)

	err = w.breaker.Execute(func() error {
		return w.mailer.Send(recipient.ContactEmail, subject, body, "")
	})
	if err != nil {
		return fmt.Errorf("deal_event_worker: send to %s: %w", recipient.ContactEmail, err)
	}

	log.Info().
		Str("deal_id", payload.DealID.String()).
		Str("event", payload.Event).
		Str("to", recipient.ContactEmail).
		Msg("deal_event_worker: notification sent")
	return nil
}
