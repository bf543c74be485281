package repository

import (
	"context"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/apierror"
	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderIdempotencyIndex is the unique index on orders.idempotency_key.
const OrderIdempotencyIndex = "idx_orders_idempotency_key"

type OrderRepository interface {
	// Create inserts the order with its lines and tenders in one statement batch.
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	NextOrderNumber(ctx context.Context) (int64, error)
	List(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error)

	SaveInventorySync(ctx context.Context, s *model.InventorySync) error
	FindInventorySync(ctx context.Context, orderID uuid.UUID) (*model.InventorySync, error)
	ListInventoryRetries(ctx context.Context, now time.Time, limit int) ([]model.InventorySync, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(o).Error
	})
	if IsUniqueViolation(err, OrderIdempotencyIndex) {
		return apierror.Conflict("checkout already submitted")
	}
	return translate(err, "order", "create order")
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Tenders", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "order", "find order")
	}
	return &o, nil
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Tenders", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("idempotency_key = ?", key).First(&o).Error
	if err != nil {
		return nil, translate(err, "order", "find order by idempotency key")
	}
	return &o, nil
}

func (r *orderRepo) NextOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Raw("SELECT nextval('orders_number_seq')").Scan(&n).Error
	return n, translate(err, "order number", "next order number")
}

func (r *orderRepo) List(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error) {
	page, limit := pageBounds(filter.Page, filter.Limit)
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.VendorID != uuid.Nil {
		q = q.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.SessionID != "" {
		q = q.Where("session_id = ?", filter.SessionID)
	}
	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "orders", "count orders")
	}
	var orders []model.Order
	err := q.Preload("Lines").Preload("Tenders").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	return orders, total, translate(err, "orders", "list orders")
}

func (r *orderRepo) SaveInventorySync(ctx context.Context, s *model.InventorySync) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "attempts", "next_retry_at", "last_error", "updated_at"}),
	}).Create(s).Error
	return translate(err, "inventory sync", "save inventory sync")
}

func (r *orderRepo) FindInventorySync(ctx context.Context, orderID uuid.UUID) (*model.InventorySync, error) {
	var s model.InventorySync
	err := r.db.WithContext(ctx).First(&s, "order_id = ?", orderID).Error
	if err != nil {
		return nil, translate(err, "inventory sync", "find inventory sync")
	}
	return &s, nil
}

func (r *orderRepo) ListInventoryRetries(ctx context.Context, now time.Time, limit int) ([]model.InventorySync, error) {
	var rows []model.InventorySync
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.InventoryFailed, now).
		Order("next_retry_at ASC").Limit(limit).
		Find(&rows).Error
	return rows, translate(err, "inventory syncs", "list inventory retries")
}
