package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReceipt   = "jobs:receipt"
	QueueEmail     = "jobs:email"
	QueueInventory = "jobs:inventory" // DLQ-only: exhausted inventory retries
)

// Job types carried in the envelope.
const (
	JobReceipt = "receipt"
	JobEmail   = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JobHandler processes one job payload. A returned error sends the job to
// the DLQ.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Handlers maps job types to their processors. Nil handlers drop the job to
// the DLQ.
type Handlers struct {
	Receipt JobHandler
	Email   JobHandler
}

func (h Handlers) lookup(jobType string) JobHandler {
	switch jobType {
	case JobReceipt:
		return h.Receipt
	case JobEmail:
		return h.Email
	}
	return nil
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueReceipt queues PDF rendering for an order; email may be empty.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, orderID uuid.UUID, email string) error {
	return d.enqueue(ctx, QueueReceipt, JobReceipt, ReceiptJobPayload{OrderID: orderID.String(), Email: email})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers Handlers) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers Handlers) {
	queues := []string{QueueReceipt, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
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

func processJob(ctx context.Context, rdb *redis.Client, handlers Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		DeadLetter(ctx, rdb, DLQEntry{
			OriginalQueue: queue,
			JobType:       "unknown",
			Payload:       json.RawMessage(fmt.Sprintf("%q", raw)),
			Reason:        "invalid envelope: " + err.Error(),
		})
		return
	}

	h := handlers.lookup(job.Type)
	if h == nil {
		DeadLetter(ctx, rdb, DLQEntry{OriginalQueue: queue, JobType: job.Type, Payload: job.Payload, Reason: "no handler for job type"})
		return
	}

	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	if err := h.Process(ctx, job.Payload); err != nil {
		log.Error().Err(err).Str("type", job.Type).Msg("job failed")
		DeadLetter(ctx, rdb, DLQEntry{OriginalQueue: queue, JobType: job.Type, Payload: job.Payload, Reason: err.Error(), Attempts: 1})
	}
}

// retryBaseDelay is the first backoff step of withRetry.
var retryBaseDelay = time.Second

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := retryBaseDelay << uint(i-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
