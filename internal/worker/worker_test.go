package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	retryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func (r *stubOrderRepo) Create(_ context.Context, o *model.Order) error {
	r.orders[o.ID] = o
	return nil
}
func (r *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, apierror.NotFound("order %s not found", id)
	}
	return o, nil
}
func (r *stubOrderRepo) FindByIdempotencyKey(_ context.Context, _ string) (*model.Order, error) {
	return nil, apierror.ErrNotFound
}
func (r *stubOrderRepo) NextOrderNumber(_ context.Context) (int64, error) { return 1, nil }
func (r *stubOrderRepo) List(_ context.Context, _ dto.OrderFilter) ([]model.Order, int64, error) {
	return nil, 0, nil
}
func (r *stubOrderRepo) SaveInventorySync(_ context.Context, _ *model.InventorySync) error {
	return nil
}
func (r *stubOrderRepo) FindInventorySync(_ context.Context, _ uuid.UUID) (*model.InventorySync, error) {
	return nil, apierror.ErrNotFound
}
func (r *stubOrderRepo) ListInventoryRetries(_ context.Context, _ time.Time, _ int) ([]model.InventorySync, error) {
	return nil, nil
}

var _ repository.OrderRepository = (*stubOrderRepo)(nil)

type stubReceiptRepo struct {
	mu       sync.Mutex
	receipts map[uuid.UUID]*model.Receipt
}

func newStubReceiptRepo() *stubReceiptRepo {
	return &stubReceiptRepo{receipts: make(map[uuid.UUID]*model.Receipt)}
}

func (r *stubReceiptRepo) Create(_ context.Context, rec *model.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[rec.OrderID] = rec
	return nil
}
func (r *stubReceiptRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*model.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receipts[orderID]
	if !ok {
		return nil, apierror.NotFound("receipt for order %s not found", orderID)
	}
	return rec, nil
}
func (r *stubReceiptRepo) Update(_ context.Context, rec *model.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[rec.OrderID] = rec
	return nil
}

var _ repository.ReceiptRepository = (*stubReceiptRepo)(nil)

type stubMailer struct {
	failures int
	calls    int
	lastTo   string
}

func (m *stubMailer) SendReceipt(to, _, _, _ string) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("smtp: connection refused")
	}
	m.lastTo = to
	return nil
}

type stubEnqueuer struct {
	jobs []EmailJobPayload
}

func (e *stubEnqueuer) EnqueueEmail(_ context.Context, p EmailJobPayload) error {
	e.jobs = append(e.jobs, p)
	return nil
}

type stubRetrier struct {
	exhausted []model.InventorySync
	err       error
}

func (s *stubRetrier) RetryPending(_ context.Context, _ time.Time, _ int) ([]model.InventorySync, error) {
	return s.exhausted, s.err
}

func cashOrder() *model.Order {
	return &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-000042",
		Subtotal:      money.MustParse("10.00"),
		TaxRate:       decimal.RequireFromString("0.08"),
		TaxAmount:     money.MustParse("0.80"),
		Total:         money.MustParse("10.80"),
		PaymentMethod: pos.MethodCash,
		Lines: []model.OrderLine{{
			Position:    0,
			ProductID:   uuid.New(),
			ProductName: "Pre-roll",
			UnitPrice:   money.MustParse("10.00"),
			Quantity:    decimal.NewFromInt(1),
			LineTotal:   money.MustParse("10.00"),
		}},
		CreatedAt: time.Now(),
	}
}

// ── Receipt worker ────────────────────────────────────────────────────────────

func TestReceiptWorker_GeneratesPDFAndQueuesEmail(t *testing.T) {
	order := cashOrder()
	orders := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	receipts := newStubReceiptRepo()
	emails := &stubEnqueuer{}
	dir := t.TempDir()

	w := NewReceiptWorker(orders, receipts, emails, dir, "Flora")
	raw, _ := json.Marshal(ReceiptJobPayload{OrderID: order.ID.String(), Email: "ana@example.com"})

	require.NoError(t, w.Process(context.Background(), raw))

	rec, err := receipts.FindByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptGenerated, rec.Status)
	require.NotNil(t, rec.PDFPath)
	assert.Equal(t, filepath.Join(dir, "receipt_ORD-000042.pdf"), *rec.PDFPath)
	_, statErr := os.Stat(*rec.PDFPath)
	assert.NoError(t, statErr)

	require.Len(t, emails.jobs, 1)
	assert.Equal(t, "ana@example.com", emails.jobs[0].ToEmail)
	assert.Equal(t, *rec.PDFPath, emails.jobs[0].PDFPath)
	assert.Contains(t, emails.jobs[0].Body, "10.80")
}

func TestReceiptWorker_NoEmailSkipsEmailJob(t *testing.T) {
	order := cashOrder()
	orders := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	emails := &stubEnqueuer{}

	w := NewReceiptWorker(orders, newStubReceiptRepo(), emails, t.TempDir(), "Flora")
	raw, _ := json.Marshal(ReceiptJobPayload{OrderID: order.ID.String()})

	require.NoError(t, w.Process(context.Background(), raw))
	assert.Empty(t, emails.jobs)
}

func TestReceiptWorker_UnknownOrderFails(t *testing.T) {
	w := NewReceiptWorker(&stubOrderRepo{orders: map[uuid.UUID]*model.Order{}}, newStubReceiptRepo(), nil, t.TempDir(), "Flora")
	raw, _ := json.Marshal(ReceiptJobPayload{OrderID: uuid.NewString()})

	err := w.Process(context.Background(), raw)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestReceiptWorker_InvalidOrderID(t *testing.T) {
	w := NewReceiptWorker(&stubOrderRepo{orders: map[uuid.UUID]*model.Order{}}, newStubReceiptRepo(), nil, t.TempDir(), "Flora")
	err := w.Process(context.Background(), json.RawMessage(`{"order_id":"nope"}`))
	assert.Error(t, err)
}

// ── Email worker ──────────────────────────────────────────────────────────────

func TestEmailWorker_RetriesThenMarksEmailed(t *testing.T) {
	orderID := uuid.New()
	receipts := newStubReceiptRepo()
	require.NoError(t, receipts.Create(context.Background(), &model.Receipt{OrderID: orderID, Status: model.ReceiptGenerated}))
	mailer := &stubMailer{failures: 2}

	w := NewEmailWorker(mailer, receipts)
	raw, _ := json.Marshal(EmailJobPayload{OrderID: orderID.String(), ToEmail: "ana@example.com", Subject: "s", Body: "b"})

	require.NoError(t, w.Process(context.Background(), raw))
	assert.Equal(t, 3, mailer.calls)
	assert.Equal(t, "ana@example.com", mailer.lastTo)

	rec, _ := receipts.FindByOrderID(context.Background(), orderID)
	assert.Equal(t, model.ReceiptEmailed, rec.Status)
	assert.Nil(t, rec.LastError)
}

func TestEmailWorker_GivesUpAfterThreeAttempts(t *testing.T) {
	orderID := uuid.New()
	receipts := newStubReceiptRepo()
	require.NoError(t, receipts.Create(context.Background(), &model.Receipt{OrderID: orderID, Status: model.ReceiptGenerated}))
	mailer := &stubMailer{failures: 10}

	w := NewEmailWorker(mailer, receipts)
	raw, _ := json.Marshal(EmailJobPayload{OrderID: orderID.String(), ToEmail: "ana@example.com"})

	err := w.Process(context.Background(), raw)
	require.Error(t, err)
	assert.Equal(t, emailAttempts, mailer.calls)

	rec, _ := receipts.FindByOrderID(context.Background(), orderID)
	assert.Equal(t, model.ReceiptError, rec.Status)
	require.NotNil(t, rec.LastError)
	assert.Contains(t, *rec.LastError, "connection refused")
}

func TestEmailWorker_EmptyRecipientIsSkipped(t *testing.T) {
	mailer := &stubMailer{}
	w := NewEmailWorker(mailer, nil)
	require.NoError(t, w.Process(context.Background(), json.RawMessage(`{"to_email":""}`)))
	assert.Zero(t, mailer.calls)
}

// ── Pool and DLQ ──────────────────────────────────────────────────────────────

type funcHandler func(ctx context.Context, raw json.RawMessage) error

func (f funcHandler) Process(ctx context.Context, raw json.RawMessage) error { return f(ctx, raw) }

func TestDispatcher_EnqueueReceipt(t *testing.T) {
	_, rdb := newTestRedis(t)
	d := NewDispatcher(rdb)
	orderID := uuid.New()

	require.NoError(t, d.EnqueueReceipt(context.Background(), orderID, "ana@example.com"))

	raw, err := rdb.RPop(context.Background(), QueueReceipt).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobReceipt, job.Type)

	var payload ReceiptJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, orderID.String(), payload.OrderID)
	assert.Equal(t, "ana@example.com", payload.Email)
}

func TestProcessJob_HandlerErrorGoesToDLQ(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	handlers := Handlers{Receipt: funcHandler(func(context.Context, json.RawMessage) error {
		return errors.New("disk full")
	})}

	raw, _ := json.Marshal(Job{Type: JobReceipt, Payload: json.RawMessage(`{"order_id":"x"}`)})
	processJob(ctx, rdb, handlers, QueueReceipt, string(raw))

	n, err := DLQLength(ctx, rdb, QueueReceipt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, err := PeekDLQ(ctx, rdb, QueueReceipt, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "disk full", entries[0].Reason)
	assert.Equal(t, JobReceipt, entries[0].JobType)
}

func TestProcessJob_InvalidEnvelopeAndMissingHandler(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	processJob(ctx, rdb, Handlers{}, QueueEmail, "not json")
	raw, _ := json.Marshal(Job{Type: JobEmail, Payload: json.RawMessage(`{}`)})
	processJob(ctx, rdb, Handlers{}, QueueEmail, string(raw))

	entries, err := PeekDLQ(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// LPUSH puts the newest first.
	assert.Equal(t, "no handler for job type", entries[0].Reason)
	assert.True(t, strings.HasPrefix(entries[1].Reason, "invalid envelope"))
}

func TestWorkerPool_ConsumesQueue(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan string, 1)
	handlers := Handlers{Receipt: funcHandler(func(_ context.Context, raw json.RawMessage) error {
		var p ReceiptJobPayload
		_ = json.Unmarshal(raw, &p)
		done <- p.OrderID
		return nil
	})}
	StartWorkerPool(ctx, rdb, 1, handlers)

	orderID := uuid.New()
	require.NoError(t, NewDispatcher(rdb).EnqueueReceipt(ctx, orderID, ""))

	select {
	case got := <-done:
		assert.Equal(t, orderID.String(), got)
	case <-time.After(3 * time.Second):
		t.Fatal("job was not consumed")
	}
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, func(attempt int) error {
		calls++
		if attempt < 1 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, func(int) error { return errors.New("boom") })
	assert.ErrorIs(t, err, context.Canceled)
}

// ── Retry cron ────────────────────────────────────────────────────────────────

func TestProcessRetries_ExhaustedGoToDLQ(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	msg := "deadlock detected"
	orderID := uuid.New()
	retrier := &stubRetrier{exhausted: []model.InventorySync{{
		OrderID: orderID, Status: model.InventoryDead, Attempts: 6, LastError: &msg,
	}}}

	processRetries(ctx, RetryCronConfig{Inventory: retrier, RDB: rdb}, time.Now())

	entries, err := PeekDLQ(ctx, rdb, QueueInventory, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].Attempts)
	assert.Contains(t, entries[0].Reason, msg)
	assert.Contains(t, string(entries[0].Payload), orderID.String())
}

func TestProcessRetries_ErrorWritesNothing(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	processRetries(ctx, RetryCronConfig{Inventory: &stubRetrier{err: errors.New("db down")}, RDB: rdb}, time.Now())

	n, err := DLQLength(ctx, rdb, QueueInventory)
	require.NoError(t, err)
	assert.Zero(t, n)
}
