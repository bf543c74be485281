package worker

// email_worker.go
// Processes email jobs from QueueEmail: sends the receipt PDF over SMTP and
// marks the receipt emailed.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const emailAttempts = 3

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	OrderID string `json:"order_id,omitempty"`
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

// ReceiptMailer sends one message with an optional attachment.
type ReceiptMailer interface {
	SendReceipt(to, subject, body, pdfPath string) error
}

type EmailWorker struct {
	mailer   ReceiptMailer
	receipts repository.ReceiptRepository
}

// NewEmailWorker creates an EmailWorker. receipts may be nil.
func NewEmailWorker(mailer ReceiptMailer, receipts repository.ReceiptRepository) *EmailWorker {
	return &EmailWorker{mailer: mailer, receipts: receipts}
}

// Process sends an email with the PDF receipt as attachment, retrying
// transient SMTP failures.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := withRetry(ctx, emailAttempts, func(attempt int) error {
		return w.mailer.SendReceipt(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	})
	if err != nil {
		w.mark(ctx, payload.OrderID, model.ReceiptError, err)
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	w.mark(ctx, payload.OrderID, model.ReceiptEmailed, nil)
	log.Info().Str("to", payload.ToEmail).Str("order_id", payload.OrderID).Msg("email_worker: receipt sent")
	return nil
}

func (w *EmailWorker) mark(ctx context.Context, orderID, status string, cause error) {
	if w.receipts == nil || orderID == "" {
		return
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return
	}
	rec, err := w.receipts.FindByOrderID(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("email_worker: receipt not found")
		return
	}
	rec.Status = status
	rec.LastError = nil
	if cause != nil {
		msg := cause.Error()
		rec.LastError = &msg
	}
	if err := w.receipts.Update(ctx, rec); err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("email_worker: failed to update receipt")
	}
}
