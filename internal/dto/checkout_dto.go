package dto

import (
	"time"

	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CheckoutLineRequest struct {
	ProductID      uuid.UUID       `json:"product_id"      validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"        validate:"required,gt=0"`
	PriceOverride  *money.Cents    `json:"price_override"  validate:"omitempty,min=0"`
	PromotionLabel string          `json:"promotion_label" validate:"max=60"`
}

type TenderRequest struct {
	Method    string      `json:"method"    validate:"required,oneof=CASH CARD"`
	Amount    money.Cents `json:"amount"    validate:"gt=0"`
	Reference string      `json:"reference" validate:"max=64"`
}

// PaymentRequest is the cashier's tender choice. Which fields apply depends
// on Method: CASH reads CashTendered, CARD reads AuthorizationRef, SPLIT reads
// Tenders. Card references from the client are honored only when the register
// has no terminal; otherwise the server authorizes every card amount.
type PaymentRequest struct {
	Method           string          `json:"method"            validate:"required,oneof=CASH CARD SPLIT"`
	CashTendered     money.Cents     `json:"cash_tendered"     validate:"min=0"`
	AuthorizationRef string          `json:"authorization_ref" validate:"max=64"`
	Tenders          []TenderRequest `json:"tenders"           validate:"omitempty,dive"`
}

// CheckoutRequest completes a sale. Lines may be omitted to check out the
// session's server-side cart.
type CheckoutRequest struct {
	SessionID      uuid.UUID             `json:"session_id"      validate:"required"`
	Lines          []CheckoutLineRequest `json:"lines"           validate:"omitempty,dive"`
	Payment        PaymentRequest        `json:"payment"`
	CustomerEmail  string                `json:"customer_email"  validate:"omitempty,email"`
	IdempotencyKey string                `json:"idempotency_key" validate:"max=64"`
}

type OrderFilter struct {
	VendorID   uuid.UUID `form:"-"` // set from the caller's claims
	SessionID  string    `form:"session_id"`
	LocationID string    `form:"location_id"`
	Date       string    `form:"date"` // YYYY-MM-DD
	Page       int       `form:"page"`
	Limit      int       `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TenderResponse struct {
	Method    string      `json:"method"`
	Amount    money.Cents `json:"amount"`
	Reference string      `json:"reference,omitempty"`
}

// CheckoutWarning reports a post-commit step that failed. The order stands.
type CheckoutWarning struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

type CheckoutResponse struct {
	OrderID          uuid.UUID         `json:"order_id"`
	OrderNumber      string            `json:"order_number"`
	SessionID        uuid.UUID         `json:"session_id"`
	Subtotal         money.Cents       `json:"subtotal"`
	Discount         money.Cents       `json:"discount"`
	Tax              money.Cents       `json:"tax"`
	Total            money.Cents       `json:"total"`
	PaymentMethod    string            `json:"payment_method"`
	CashTendered     *money.Cents      `json:"cash_tendered,omitempty"`
	ChangeGiven      *money.Cents      `json:"change_given,omitempty"`
	AuthorizationRef string            `json:"authorization_ref,omitempty"`
	Tenders          []TenderResponse  `json:"tenders,omitempty"`
	Duplicate        bool              `json:"duplicate"`
	Warnings         []CheckoutWarning `json:"warnings,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

type OrderLineResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	UnitPrice      money.Cents     `json:"unit_price"`
	Quantity       decimal.Decimal `json:"quantity"`
	LineTotal      money.Cents     `json:"line_total"`
	OriginalPrice  *money.Cents    `json:"original_price,omitempty"`
	Discount       money.Cents     `json:"discount"`
	PromotionLabel *string         `json:"promotion_label,omitempty"`
}

type OrderResponse struct {
	CheckoutResponse
	TaxRate         decimal.Decimal     `json:"tax_rate"`
	InventoryStatus string              `json:"inventory_status,omitempty"`
	Lines           []OrderLineResponse `json:"lines"`
}

type OrderListResponse struct {
	Data  []OrderResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type ReceiptResponse struct {
	OrderID      uuid.UUID `json:"order_id"`
	Status       string    `json:"status"`
	PDFAvailable bool      `json:"pdf_available"`
	Email        *string   `json:"email,omitempty"`
	LastError    *string   `json:"last_error,omitempty"`
}
