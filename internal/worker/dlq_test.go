package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadLetter_TrimsToCap(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < DLQMaxEntries+5; i++ {
		DeadLetter(ctx, rdb, DLQEntry{OriginalQueue: QueueEmail, JobType: JobEmail, Reason: fmt.Sprintf("fail %d", i)})
	}

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.EqualValues(t, DLQMaxEntries, n)

	newest, err := PeekDLQ(ctx, rdb, QueueEmail, 1)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, fmt.Sprintf("fail %d", DLQMaxEntries+4), newest[0].Reason)
	assert.False(t, newest[0].FailedAt.IsZero())
}

func TestRequeueDLQ_ReplaysOldestOntoSourceQueue(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	DeadLetter(ctx, rdb, DLQEntry{OriginalQueue: QueueReceipt, JobType: JobReceipt, Payload: json.RawMessage(`{"order_id":"a"}`), Reason: "first"})
	DeadLetter(ctx, rdb, DLQEntry{OriginalQueue: QueueReceipt, JobType: JobReceipt, Payload: json.RawMessage(`{"order_id":"b"}`), Reason: "second"})

	e, err := RequeueDLQ(ctx, rdb, QueueReceipt)
	require.NoError(t, err)
	assert.Equal(t, "first", e.Reason)

	raw, err := rdb.RPop(ctx, QueueReceipt).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobReceipt, job.Type)
	assert.JSONEq(t, `{"order_id":"a"}`, string(job.Payload))

	n, err := DLQLength(ctx, rdb, QueueReceipt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRequeueDLQ_Empty(t *testing.T) {
	_, rdb := newTestRedis(t)
	_, err := RequeueDLQ(context.Background(), rdb, QueueEmail)
	assert.ErrorIs(t, err, ErrDLQEmpty)
}

func TestPeekDLQ_NonPositiveCount(t *testing.T) {
	_, rdb := newTestRedis(t)
	entries, err := PeekDLQ(context.Background(), rdb, QueueEmail, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
