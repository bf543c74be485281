package worker

// receipt_worker.go
// Renders the PDF receipt of a completed order and, when the customer left
// an email, hands it to the email queue.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/infra"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email,omitempty"`
}

// EmailEnqueuer is the part of Dispatcher the receipt worker needs.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ReceiptWorker struct {
	orders      repository.OrderRepository
	receipts    repository.ReceiptRepository
	emails      EmailEnqueuer
	storagePath string
	storeName   string
}

func NewReceiptWorker(
	orders repository.OrderRepository,
	receipts repository.ReceiptRepository,
	emails EmailEnqueuer,
	storagePath string,
	storeName string,
) *ReceiptWorker {
	return &ReceiptWorker{
		orders:      orders,
		receipts:    receipts,
		emails:      emails,
		storagePath: storagePath,
		storeName:   storeName,
	}
}

// Process handles a single receipt job:
//  1. Load the order with lines and tenders
//  2. Find or create its receipt row
//  3. Render the PDF and mark the receipt generated (or error)
//  4. Enqueue an email job when an address was given
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("receipt_worker: invalid payload: %w", err)
	}
	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return fmt.Errorf("receipt_worker: invalid order id %q", payload.OrderID)
	}

	order, err := w.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("receipt_worker: load order: %w", err)
	}

	rec, err := w.receipts.FindByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, apierror.ErrNotFound):
		rec = &model.Receipt{ID: uuid.New(), OrderID: orderID, Status: model.ReceiptPending}
		if payload.Email != "" {
			email := payload.Email
			rec.Email = &email
		}
		if err := w.receipts.Create(ctx, rec); err != nil {
			return fmt.Errorf("receipt_worker: create receipt: %w", err)
		}
	case err != nil:
		return fmt.Errorf("receipt_worker: find receipt: %w", err)
	}

	path, err := infra.GenerateReceiptPDF(order, w.storeName, w.storagePath)
	if err != nil {
		msg := err.Error()
		rec.Status = model.ReceiptError
		rec.LastError = &msg
		if uerr := w.receipts.Update(ctx, rec); uerr != nil {
			log.Error().Err(uerr).Str("order_id", payload.OrderID).Msg("receipt_worker: failed to record error")
		}
		return err
	}
	rec.Status = model.ReceiptGenerated
	rec.PDFPath = &path
	rec.LastError = nil
	if err := w.receipts.Update(ctx, rec); err != nil {
		return fmt.Errorf("receipt_worker: update receipt: %w", err)
	}
	log.Info().Str("pdf", path).Str("order_id", payload.OrderID).Msg("receipt_worker: PDF generated")

	if payload.Email == "" || w.emails == nil {
		return nil
	}
	job := EmailJobPayload{
		OrderID: payload.OrderID,
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("%s receipt %s", w.storeName, order.OrderNumber),
		Body:    fmt.Sprintf("Thanks for shopping with us. Your receipt is attached.\nTotal: $%s", order.Total),
		PDFPath: path,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		// The PDF is done; a lost email is not worth failing the job.
		log.Warn().Err(err).Str("order_id", payload.OrderID).Msg("receipt_worker: failed to enqueue email")
		return nil
	}
	log.Info().Str("order_id", payload.OrderID).Msg("receipt_worker: email job enqueued")
	return nil
}
