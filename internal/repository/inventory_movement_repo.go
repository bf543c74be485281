package repository

import (
	"context"

	"github.com/floradistro/websitev2-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryMovementRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, m *model.InventoryMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error)
}

type inventoryMovementRepo struct{ db *gorm.DB }

func NewInventoryMovementRepository(db *gorm.DB) InventoryMovementRepository {
	return &inventoryMovementRepo{db: db}
}

func (r *inventoryMovementRepo) CreateTx(ctx context.Context, tx *gorm.DB, m *model.InventoryMovement) error {
	return translate(pick(r.db, tx).WithContext(ctx).Create(m).Error, "inventory movement", "create inventory movement")
}

func (r *inventoryMovementRepo) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]model.InventoryMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var movs []model.InventoryMovement
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).
		Order("created_at DESC").Limit(limit).Find(&movs).Error
	return movs, translate(err, "inventory movements", "list inventory movements")
}
