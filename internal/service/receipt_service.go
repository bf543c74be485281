package service

import (
	"context"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/repository"

	"github.com/google/uuid"
)

// ReceiptService reads the receipts rendered by the receipt worker.
type ReceiptService interface {
	Status(ctx context.Context, orderID uuid.UUID) (*dto.ReceiptResponse, error)
	// PDFPath returns the rendered file, or NotFound while rendering is pending.
	PDFPath(ctx context.Context, orderID uuid.UUID) (string, error)
}

type receiptService struct {
	repo repository.ReceiptRepository
}

func NewReceiptService(repo repository.ReceiptRepository) ReceiptService {
	return &receiptService{repo: repo}
}

func (s *receiptService) Status(ctx context.Context, orderID uuid.UUID) (*dto.ReceiptResponse, error) {
	rec, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &dto.ReceiptResponse{
		OrderID:      rec.OrderID,
		Status:       rec.Status,
		PDFAvailable: pdfReady(rec),
		Email:        rec.Email,
		LastError:    rec.LastError,
	}, nil
}

func (s *receiptService) PDFPath(ctx context.Context, orderID uuid.UUID) (string, error) {
	rec, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if !pdfReady(rec) {
		return "", apierror.NotFound("receipt for order %s is not ready", orderID)
	}
	return *rec.PDFPath, nil
}

func pdfReady(rec *model.Receipt) bool {
	return rec.PDFPath != nil && (rec.Status == model.ReceiptGenerated || rec.Status == model.ReceiptEmailed)
}
