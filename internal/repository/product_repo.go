package repository

import (
	"context"

	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error)
	List(ctx context.Context, vendorID uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, p *model.Product) error

	// FindForUpdateTx locks the product row for the rest of tx.
	FindForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	UpdateStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) error
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "product with this SKU", "create product")
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "product", "find product")
	}
	return &p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, translate(err, "products", "find products")
	}
	out := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *productRepo) List(ctx context.Context, vendorID uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error) {
	page, limit := pageBounds(filter.Page, filter.Limit)
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("vendor_id = ?", vendorID)
	if !filter.Inactive {
		q = q.Where("active = true")
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where("name ILIKE ? OR sku ILIKE ?", like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "products", "count products")
	}
	var products []model.Product
	err := q.Order("name ASC").Offset((page - 1) * limit).Limit(limit).Find(&products).Error
	return products, total, translate(err, "products", "list products")
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Save(p).Error, "product", "update product")
}

func (r *productRepo) FindForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "product", "lock product")
	}
	return &p, nil
}

func (r *productRepo) UpdateStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) error {
	err := pick(r.db, tx).WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta)).Error
	return translate(err, "product", "update stock")
}
