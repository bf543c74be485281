package repository

import (
	"context"

	"github.com/floradistro/websitev2-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReceiptRepository interface {
	Create(ctx context.Context, r *model.Receipt) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Receipt, error)
	Update(ctx context.Context, r *model.Receipt) error
}

type receiptRepo struct{ db *gorm.DB }

func NewReceiptRepository(db *gorm.DB) ReceiptRepository { return &receiptRepo{db: db} }

func (r *receiptRepo) Create(ctx context.Context, rec *model.Receipt) error {
	return translate(r.db.WithContext(ctx).Create(rec).Error, "receipt", "create receipt")
}

func (r *receiptRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Receipt, error) {
	var rec model.Receipt
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&rec).Error; err != nil {
		return nil, translate(err, "receipt", "find receipt")
	}
	return &rec, nil
}

func (r *receiptRepo) Update(ctx context.Context, rec *model.Receipt) error {
	return translate(r.db.WithContext(ctx).Save(rec).Error, "receipt", "update receipt")
}
