package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueDealEvents    = "jobs:deal_events"
	QueueConfirmations = "jobs:confirmations"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DealEventPayload notifies a counterparty that the deal changed.
type DealEventPayload struct {
	DealID             uuid.UUID `json:"deal_id"`
	Version            int       `json:"version"`
	Event              string    `json:"event"`
	ActorCompanyID     uuid.UUID `json:"actor_company_id"`
	RecipientCompanyID uuid.UUID `json:"recipient_company_id"`
}

// ConfirmationPayload triggers the completed-deal confirmation PDF + email.
type ConfirmationPayload struct {
	DealID  uuid.UUID `json:"deal_id"`
	Version int       `json:"version"`
}

// Dispatcher enqueues async jobs into Redis lists; the worker pool dequeues
// them via BRPOP. Enqueue failures never fail the business operation — the
// caller logs and keeps going.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher { return &Dispatcher{rdb: rdb} }

func (d *Dispatcher) EnqueueDealEvent(ctx context.Context, payload DealEventPayload) error {
	return d.enqueue(ctx, QueueDealEvents, "deal_event", payload)
}

func (d *Dispatcher) EnqueueConfirmation(ctx context.Context, payload ConfirmationPayload) error {
	return d.enqueue(ctx, QueueConfirmations, "confirmation", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handler processes one dequeued job. A returned error sends the job to the DLQ.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// WorkerHandlers maps queues to their handlers; wired at the composition root.
type WorkerHandlers struct {
	DealEvents    Handler
	Confirmations Handler
}

func (h *WorkerHandlers) forQueue(queue string) Handler {
	switch queue {
	case QueueDealEvents:
		return h.DealEvents
	case QueueConfirmations:
		return h.Confirmations
	default:
		return nil
	}
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueDealEvents, QueueConfirmations}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	handler := handlers.forQueue(queue)
	if handler == nil {
		log.Error().Str("queue", queue).Str("type", job.Type).Msg("no handler for queue")
		return
	}

	if err := handler.Process(ctx, job.Payload); err != nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), 1)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}
