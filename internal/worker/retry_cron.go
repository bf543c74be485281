package worker

// retry_cron.go
// Opt-in background goroutine that re-attempts inventory decrements which
// failed at checkout. Exhausted ones are pushed to the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// InventoryRetrier retries due decrements and returns the exhausted ones.
type InventoryRetrier interface {
	RetryPending(ctx context.Context, now time.Time, limit int) ([]model.InventorySync, error)
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	Inventory InventoryRetrier
	RDB       *redis.Client
	Interval  time.Duration // defaults to 30s
}

// StartRetryCron launches a background goroutine that ticks on Interval and
// retries due inventory decrements. It respects ctx for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = retryTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg, time.Now())
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig, now time.Time) {
	exhausted, err := cfg.Inventory.RetryPending(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to process pending inventory retries")
		return
	}

	for _, s := range exhausted {
		payload, _ := json.Marshal(map[string]string{"order_id": s.OrderID.String()})
		reason := fmt.Sprintf("inventory decrement failed %d times", s.Attempts)
		if s.LastError != nil {
			reason += ": " + *s.LastError
		}
		if cfg.RDB != nil {
			DeadLetter(ctx, cfg.RDB, DLQEntry{
				OriginalQueue: QueueInventory,
				JobType:       "inventory",
				Payload:       payload,
				Reason:        reason,
				Attempts:      s.Attempts,
			})
		}
	}
}
