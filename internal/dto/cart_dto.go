package dto

import (
	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddCartItemRequest struct {
	ProductID      uuid.UUID       `json:"product_id"      validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"        validate:"required,gt=0"`
	PriceOverride  *money.Cents    `json:"price_override"  validate:"omitempty,min=0"`
	PromotionLabel string          `json:"promotion_label" validate:"max=60"`
}

// UpdateCartItemRequest sets an absolute quantity; zero or less removes the line.
type UpdateCartItemRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type CartLineResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	UnitPrice      money.Cents     `json:"unit_price"`
	Quantity       decimal.Decimal `json:"quantity"`
	LineTotal      money.Cents     `json:"line_total"`
	OriginalPrice  *money.Cents    `json:"original_price,omitempty"`
	Discount       money.Cents     `json:"discount"`
	PromotionLabel string          `json:"promotion_label,omitempty"`
}

type CartResponse struct {
	SessionID uuid.UUID          `json:"session_id"`
	Lines     []CartLineResponse `json:"lines"`
	Subtotal  money.Cents        `json:"subtotal"`
	Discount  money.Cents        `json:"discount"`
	TaxRate   decimal.Decimal    `json:"tax_rate"`
	Tax       money.Cents        `json:"tax"`
	Total     money.Cents        `json:"total"`
	// Clamped is set when the requested quantity exceeded stock and was reduced.
	Clamped bool `json:"clamped,omitempty"`
}
