package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces dead-letter lists: dlq:<source queue>.
const DLQPrefix = "dlq:"

// DLQMaxEntries caps each dead-letter list; older entries are trimmed.
const DLQMaxEntries = 1000

// ErrDLQEmpty is returned by RequeueDLQ when there is nothing to replay.
var ErrDLQEmpty = errors.New("dead letter queue is empty")

// DLQEntry is a job that could not be processed, kept for an operator to
// inspect or replay.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

func dlqKey(queue string) string { return DLQPrefix + queue }

// DeadLetter records a failed job. Errors are logged, never returned: a
// failing DLQ must not take the worker down with it.
func DeadLetter(ctx context.Context, rdb *redis.Client, e DLQEntry) {
	if e.FailedAt.IsZero() {
		e.FailedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("queue", e.OriginalQueue).Msg("dlq: marshal entry")
		return
	}

	key := dlqKey(e.OriginalQueue)
	pipe := rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, DLQMaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed")
		return
	}

	log.Warn().
		Str("queue", e.OriginalQueue).
		Str("job_type", e.JobType).
		Str("reason", e.Reason).
		Int("attempts", e.Attempts).
		Msg("dlq: job dead-lettered")
}

// DLQLength reports how many entries a queue's DLQ holds.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, dlqKey(queue)).Result()
}

// PeekDLQ returns up to n entries, newest first, without removing them.
func PeekDLQ(ctx context.Context, rdb *redis.Client, queue string, n int64) ([]DLQEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	raws, err := rdb.LRange(ctx, dlqKey(queue), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]DLQEntry, 0, len(raws))
	for _, raw := range raws {
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: skipping undecodable entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RequeueDLQ moves the oldest dead-lettered job back onto its source queue
// with a fresh envelope. Entries for queues nothing consumes (inventory)
// are replayed onto that list too; the caller decides whether that is useful.
func RequeueDLQ(ctx context.Context, rdb *redis.Client, queue string) (*DLQEntry, error) {
	raw, err := rdb.RPop(ctx, dlqKey(queue)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDLQEmpty
	}
	if err != nil {
		return nil, err
	}
	var e DLQEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, err
	}
	envelope, err := json.Marshal(Job{Type: e.JobType, Payload: e.Payload})
	if err != nil {
		return nil, err
	}
	if err := rdb.LPush(ctx, e.OriginalQueue, envelope).Err(); err != nil {
		// Put it back so the entry is not lost.
		_ = rdb.RPush(ctx, dlqKey(queue), raw).Err()
		return nil, err
	}
	log.Info().Str("queue", e.OriginalQueue).Str("job_type", e.JobType).Msg("dlq: job requeued")
	return &e, nil
}
