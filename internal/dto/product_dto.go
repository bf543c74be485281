package dto

import (
	"time"

	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	SKU          string          `json:"sku"           validate:"required,max=64"`
	Name         string          `json:"name"          validate:"required,min=2,max=120"`
	Category     string          `json:"category"      validate:"max=60"`
	UnitPrice    money.Cents     `json:"unit_price"    validate:"min=0"`
	Unit         string          `json:"unit"          validate:"omitempty,oneof=unit g oz"`
	SoldByWeight bool            `json:"sold_by_weight"`
	TrackStock   *bool           `json:"track_stock"`
	InitialStock decimal.Decimal `json:"initial_stock" validate:"min=0"`
}

type UpdateProductRequest struct {
	Name       *string      `json:"name"       validate:"omitempty,min=2,max=120"`
	Category   *string      `json:"category"   validate:"omitempty,max=60"`
	UnitPrice  *money.Cents `json:"unit_price" validate:"omitempty,min=0"`
	TrackStock *bool        `json:"track_stock"`
	Active     *bool        `json:"active"`
}

// AdjustStockRequest applies a signed delta: positive restocks, negative
// writes off.
type AdjustStockRequest struct {
	Delta  decimal.Decimal `json:"delta"  validate:"required"`
	Reason string          `json:"reason" validate:"required,min=3,max=200"`
}

type ProductFilter struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Inactive bool   `form:"include_inactive"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type ProductResponse struct {
	ID            uuid.UUID       `json:"id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	UnitPrice     money.Cents     `json:"unit_price"`
	Unit          string          `json:"unit"`
	SoldByWeight  bool            `json:"sold_by_weight"`
	TrackStock    bool            `json:"track_stock"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	Active        bool            `json:"active"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type InventoryMovementResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	StockBefore decimal.Decimal `json:"stock_before"`
	StockAfter  decimal.Decimal `json:"stock_after"`
	Reason      string          `json:"reason,omitempty"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
